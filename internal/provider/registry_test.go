package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/config"
)

func testRegistry() *Registry {
	return NewRegistry(
		Definition{
			Alias: "user", Model: User{},
			Searchable: true, Friendable: true, Devices: true,
			CanMessage: AllowAliases("company"),
			CanSearch:  ParseRule("company"),
			CanFriend:  AllowAll(),
		},
		Definition{
			Alias: "company", Model: Company{},
			Searchable: true, Friendable: true, Devices: true,
			CanMessage: Rule{},
			CanSearch:  AllowAll(),
			CanFriend:  Rule{},
		},
		Definition{
			Alias: "bot", Model: Bot{},
			Searchable: true, Friendable: true,
		},
	)
}

func TestParseRule(t *testing.T) {
	assert.True(t, ParseRule("true").Allows("anything"))
	assert.True(t, ParseRule("*").Allows("anything"))
	assert.False(t, ParseRule("").Allows("user"))
	assert.False(t, ParseRule("null").Allows("user"))
	assert.False(t, ParseRule("false").Allows("user"))

	r := ParseRule("company| staff")
	assert.True(t, r.Allows("company"))
	assert.True(t, r.Allows("staff"))
	assert.False(t, r.Allows("user"))
}

func TestUnsatisfiedCapabilitiesDowngrade(t *testing.T) {
	r := testRegistry()

	caps, ok := r.Capabilities("company")
	require.True(t, ok)
	assert.True(t, caps.Searchable)
	assert.True(t, caps.Friendable)
	assert.False(t, caps.Devices, "company model has no devices contract")

	caps, ok = r.Capabilities("bot")
	require.True(t, ok)
	assert.Equal(t, Capabilities{}, caps)

	caps, _ = r.Capabilities("user")
	assert.Equal(t, Capabilities{Searchable: true, Friendable: true, Devices: true}, caps)
}

func TestProviderAlwaysInteractsWithItself(t *testing.T) {
	r := testRegistry()

	assert.True(t, r.CanMessage("company", "company"))
	assert.True(t, r.CanMessage("bot", "bot"))
	assert.True(t, r.CanFriend("user", "user"))
}

func TestInteractionRules(t *testing.T) {
	r := testRegistry()

	assert.True(t, r.CanMessage("user", "company"))
	assert.False(t, r.CanMessage("company", "user"))
	assert.False(t, r.CanMessage("user", "bot"))
	assert.False(t, r.CanMessage("user", "ghost"))
	assert.False(t, r.CanMessage("ghost", "user"))

	assert.True(t, r.CanSearch("company", "user"))
	assert.False(t, r.CanSearch("company", "bot"), "bot is not searchable")
	assert.Equal(t, []string{"bot", "company", "user"}, r.Aliases())
	assert.Equal(t, []string{"company", "user"}, r.SearchableAliases("user"))

	assert.True(t, r.CanFriend("user", "company"))
	assert.False(t, r.CanFriend("company", "user"))
	assert.False(t, r.CanFriend("user", "bot"), "bot is not friendable")
}

func TestSearchColumns(t *testing.T) {
	r := testRegistry()

	assert.Equal(t, []string{"name", "email"}, r.SearchColumns("user"))
	assert.Nil(t, r.SearchColumns("bot"))
	assert.Equal(t, "name", r.NameColumn("ghost"))
}

func TestNewRegistrySkipsInvalidDefinitions(t *testing.T) {
	r := NewRegistry(
		Definition{Alias: "", Model: User{}},
		Definition{Alias: "user"},
		Definition{Alias: "company", Model: Company{}},
		Definition{Alias: "company", Model: User{}, Devices: true},
	)

	assert.Equal(t, []string{"company"}, r.Aliases())
	assert.False(t, r.HasDevices("company"))
}

func TestFromConfig(t *testing.T) {
	r := FromConfig([]config.ProviderConfig{
		{Alias: "user", Model: "user", Friendable: true, Devices: true, CanMessage: "true"},
		{Alias: "staff", Model: "user", CanMessage: "user"},
		{Alias: "alien", Model: "martian"},
	})

	assert.Equal(t, []string{"staff", "user"}, r.Aliases())
	assert.True(t, r.IsFriendable("user"))
	assert.False(t, r.IsFriendable("staff"))
	assert.True(t, r.CanMessage("user", "staff"))
	assert.True(t, r.CanMessage("staff", "user"))
	assert.False(t, r.Known("alien"))
}
