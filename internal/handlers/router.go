package handlers

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups every HTTP handler of the service.
type Handlers struct {
	Threads      *ThreadHandler
	Messages     *MessageHandler
	Friends      *FriendHandler
	Invites      *InviteHandler
	Interactions *InteractionHandler
}

// RegisterRoutes mounts the API under r. auth runs before every route.
func RegisterRoutes(r gin.IRouter, auth gin.HandlerFunc, h Handlers) {
	api := r.Group("/", auth)

	api.GET("/threads", h.Threads.ListThreads)
	api.GET("/threads/:thread_id", h.Threads.ShowThread)
	api.DELETE("/threads/:thread_id", h.Threads.Archive)
	api.PUT("/threads/:thread_id/settings", h.Threads.UpdateSettings)
	api.POST("/threads/:thread_id/lock", h.Threads.Lock)
	api.POST("/threads/:thread_id/unlock", h.Threads.Unlock)
	api.POST("/privates", h.Threads.CreatePrivate)
	api.POST("/groups", h.Threads.CreateGroup)

	api.GET("/threads/:thread_id/participants", h.Threads.ListParticipants)
	api.POST("/threads/:thread_id/participants", h.Threads.AddParticipants)
	api.PUT("/threads/:thread_id/participants/:participant_id", h.Threads.UpdatePermissions)
	api.DELETE("/threads/:thread_id/participants/:participant_id", h.Threads.RemoveParticipant)
	api.POST("/threads/:thread_id/participants/:participant_id/promote", h.Threads.Promote)
	api.POST("/threads/:thread_id/participants/:participant_id/demote", h.Threads.Demote)
	api.POST("/threads/:thread_id/leave", h.Threads.Leave)

	api.GET("/threads/:thread_id/messages", h.Messages.ListMessages)
	api.POST("/threads/:thread_id/messages", h.Messages.PostMessage)
	api.GET("/threads/:thread_id/messages/:message_id", h.Messages.ShowMessage)
	api.DELETE("/threads/:thread_id/messages/:message_id", h.Messages.DeleteMessage)
	api.POST("/threads/:thread_id/mark-read", h.Messages.MarkRead)

	api.GET("/threads/:thread_id/invites", h.Invites.ListInvites)
	api.POST("/threads/:thread_id/invites", h.Invites.CreateInvite)
	api.DELETE("/threads/:thread_id/invites/:invite_id", h.Invites.ArchiveInvite)
	api.GET("/join/:code", h.Invites.PreviewInvite)
	api.POST("/join/:code", h.Invites.JoinWithInvite)

	api.POST("/threads/:thread_id/knock", h.Interactions.Knock)
	api.POST("/threads/:thread_id/calls", h.Interactions.StartCall)
	api.POST("/heartbeat", h.Interactions.Heartbeat)
	api.GET("/providers/:alias/:id/status", h.Interactions.ProviderStatus)
	api.GET("/search", h.Interactions.Search)

	api.GET("/friends", h.Friends.ListFriends)
	api.GET("/friends/:friend_id", h.Friends.ShowFriend)
	api.DELETE("/friends/:friend_id", h.Friends.RemoveFriend)
	api.GET("/pending-friends", h.Friends.ListPending)
	api.PUT("/pending-friends/:pending_id", h.Friends.AcceptRequest)
	api.DELETE("/pending-friends/:pending_id", h.Friends.DenyRequest)
	api.GET("/sent-friends", h.Friends.ListSent)
	api.POST("/sent-friends", h.Friends.SendRequest)
	api.DELETE("/sent-friends/:sent_id", h.Friends.CancelRequest)
}
