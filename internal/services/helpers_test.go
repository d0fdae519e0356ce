package services

import (
	"time"

	"github.com/stretchr/testify/mock"

	"messenger-service/internal/config"
	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
	"messenger-service/internal/provider"
)

var (
	alice    = models.ProviderRef{Alias: "user", ID: "1"}
	bob      = models.ProviderRef{Alias: "user", ID: "2"}
	doe      = models.ProviderRef{Alias: "user", ID: "3"}
	stranger = models.ProviderRef{Alias: "user", ID: "4"}
	acme     = models.ProviderRef{Alias: "company", ID: "9"}
	robot    = models.ProviderRef{Alias: "bot", ID: "8"}
)

type fixture struct {
	providers    *mocks.ProviderRepositoryMock
	threads      *mocks.ThreadRepositoryMock
	participants *mocks.ParticipantRepositoryMock
	messages     *mocks.MessageRepositoryMock
	friends      *mocks.FriendRepositoryMock
	invites      *mocks.InviteRepositoryMock
	emitter      *mocks.EmitterRecorder
	registry     *provider.Registry
	cfg          config.Config
}

func newFixture() *fixture {
	return &fixture{
		providers:    &mocks.ProviderRepositoryMock{},
		threads:      &mocks.ThreadRepositoryMock{},
		participants: &mocks.ParticipantRepositoryMock{},
		messages:     &mocks.MessageRepositoryMock{},
		friends:      &mocks.FriendRepositoryMock{},
		invites:      &mocks.InviteRepositoryMock{},
		emitter:      &mocks.EmitterRecorder{},
		registry:     testRegistry(),
		cfg:          testConfig(),
	}
}

// testRegistry lets users message anyone and befriend users; companies
// may message users but never bots, and befriend nobody.
func testRegistry() *provider.Registry {
	return provider.NewRegistry(
		provider.Definition{
			Alias: "user", Model: provider.User{},
			Searchable: true, Friendable: true, Devices: true,
			CanMessage: provider.AllowAll(),
			CanSearch:  provider.AllowAll(),
			CanFriend:  provider.AllowAliases("user"),
		},
		provider.Definition{
			Alias: "company", Model: provider.Company{},
			Searchable: true,
			CanMessage: provider.AllowAliases("user"),
			CanSearch:  provider.Rule{},
			CanFriend:  provider.Rule{},
		},
		provider.Definition{
			Alias: "bot", Model: provider.Bot{},
			CanMessage: provider.AllowAll(),
		},
	)
}

func testConfig() config.Config {
	return config.Config{
		Invites:      config.InvitesConfig{Enabled: true, MaxPerThread: 3},
		Knocks:       config.KnocksConfig{Enabled: true, Timeout: 5 * time.Minute},
		OnlineStatus: config.OnlineStatusConfig{Enabled: true, Lifetime: 4 * time.Minute},
		Calling:      config.CallingConfig{Enabled: true, Driver: "default"},
		Participants: config.ParticipantsConfig{RequireFriendship: true},
		Documents:    config.UploadConfig{Upload: true},
		Images:       config.UploadConfig{Upload: true},
		Collections: config.CollectionsConfig{
			SearchPageCount:        25,
			ThreadsIndexCount:      100,
			ThreadsPageCount:       25,
			ParticipantsIndexCount: 500,
			ParticipantsPageCount:  50,
			MessagesIndexCount:     40,
			MessagesPageCount:      25,
		},
	}
}

func (f *fixture) resolver() *ParticipantResolver {
	return NewParticipantResolver(f.providers, f.participants, f.friends, f.registry, f.emitter, f.cfg.Participants.RequireFriendship)
}

func (f *fixture) pipeline() *MessagePipeline {
	return NewMessagePipeline(f.messages, f.participants, f.emitter, f.cfg)
}

func (f *fixture) threadService() *ThreadService {
	return NewThreadService(f.threads, f.participants, f.providers, f.registry, f.resolver(), f.pipeline(), f.emitter, nil, f.cfg)
}

// expectMembers answers audience lookups for threadID.
func (f *fixture) expectMembers(threadID string, members ...models.Participant) {
	f.participants.On("ListParticipants", mock.Anything, threadID, 0).Return(members, nil)
}

func groupThread(id string) models.Thread {
	return models.Thread{
		ID:              id,
		Kind:            models.ThreadGroup,
		Subject:         "crew",
		AddParticipants: true,
		Invitations:     true,
		Calling:         true,
		Messaging:       true,
	}
}

func privateThread(id string) models.Thread {
	return models.Thread{ID: id, Kind: models.ThreadPrivate, Calling: true, Messaging: true}
}

func member(id, threadID string, owner models.ProviderRef) *models.Participant {
	p := models.NewParticipant(threadID, owner)
	p.ID = id
	return &p
}

func admin(id, threadID string, owner models.ProviderRef) *models.Participant {
	p := models.NewAdmin(threadID, owner)
	p.ID = id
	return &p
}

func records(refs ...models.ProviderRef) []models.ProviderRecord {
	out := make([]models.ProviderRecord, 0, len(refs))
	for _, r := range refs {
		out = append(out, models.ProviderRecord{Alias: r.Alias, ID: r.ID, Name: "name " + r.ID})
	}
	return out
}
