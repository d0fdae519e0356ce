package provider

// Provider is the identity contract every registered provider model
// satisfies.
type Provider interface {
	// NameColumn is the provider table column used as display name.
	NameColumn() string
}

// Searchable providers can be found through provider search.
type Searchable interface {
	Provider
	SearchColumns() []string
}

// Friendable providers may send and receive friend requests.
type Friendable interface {
	Provider
	CanBefriend() bool
}

// DeviceOwner providers own mobile devices that receive push
// notifications.
type DeviceOwner interface {
	Provider
	HasDevices() bool
}

// User is the stock person provider.
type User struct{}

func (User) NameColumn() string      { return "name" }
func (User) SearchColumns() []string { return []string{"name", "email"} }
func (User) CanBefriend() bool       { return true }
func (User) HasDevices() bool        { return true }

// Company is an organisation provider. It has no devices of its own.
type Company struct{}

func (Company) NameColumn() string      { return "name" }
func (Company) SearchColumns() []string { return []string{"name"} }
func (Company) CanBefriend() bool       { return true }

// Bot is an automated provider with no optional contracts.
type Bot struct{}

func (Bot) NameColumn() string { return "name" }

// Models maps the model names accepted in configuration to their
// contract implementations.
var Models = map[string]Provider{
	"user":    User{},
	"company": Company{},
	"bot":     Bot{},
}
