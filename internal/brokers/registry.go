package brokers

import (
	"log"

	"messenger-service/internal/config"
)

type route struct {
	driver string
	broker Broker
}

// Registry maps (category, driver alias) to a Broker. Every category
// always resolves; unknown, empty and "null" aliases get the null broker.
type Registry struct {
	drivers map[Category]map[string]Broker
}

// NewRegistry returns a registry holding only the null drivers.
func NewRegistry() *Registry {
	r := &Registry{drivers: make(map[Category]map[string]Broker)}
	for _, c := range Categories {
		r.drivers[c] = map[string]Broker{DriverNull: NullBroker{}}
	}
	return r
}

// Register adds a driver. Registering "null" is ignored.
func (r *Registry) Register(c Category, alias string, b Broker) {
	if alias == "" || alias == DriverNull || b == nil {
		return
	}
	if _, ok := r.drivers[c]; !ok {
		r.drivers[c] = map[string]Broker{DriverNull: NullBroker{}}
	}
	r.drivers[c][alias] = b
}

// Resolve returns the effective driver alias and broker for a category.
func (r *Registry) Resolve(c Category, alias string) (string, Broker) {
	if b, ok := r.drivers[c][alias]; ok {
		return alias, b
	}
	if alias != "" && alias != DriverNull {
		log.Printf("broker driver unknown, using null category=%s driver=%s", c, alias)
	}
	return DriverNull, NullBroker{}
}

// Selection is the configured driver per category.
type Selection struct {
	Broadcasting             string
	Push                     string
	Calling                  string
	CallingEnabled           bool
	PushRequiresBroadcasting bool
}

// SelectionFromConfig reads the driver keys.
func SelectionFromConfig(cfg config.Config) Selection {
	return Selection{
		Broadcasting:             cfg.Broadcasting.Driver,
		Push:                     cfg.PushNotifications.Driver,
		Calling:                  cfg.Calling.Driver,
		CallingEnabled:           cfg.Calling.Enabled,
		PushRequiresBroadcasting: cfg.PushNotifications.RequiresBroadcasting,
	}
}

// routes resolves the selection once. Calling is null while disabled, and
// push follows a null broadcaster when the coupling flag is set.
func (r *Registry) routes(sel Selection) map[Category]route {
	out := make(map[Category]route, len(Categories))

	alias, b := r.Resolve(Broadcasting, sel.Broadcasting)
	out[Broadcasting] = route{driver: alias, broker: b}

	if sel.PushRequiresBroadcasting && alias == DriverNull {
		out[PushNotifications] = route{driver: DriverNull, broker: NullBroker{}}
	} else {
		pa, pb := r.Resolve(PushNotifications, sel.Push)
		out[PushNotifications] = route{driver: pa, broker: pb}
	}

	if !sel.CallingEnabled {
		out[Calling] = route{driver: DriverNull, broker: NullBroker{}}
	} else {
		ca, cb := r.Resolve(Calling, sel.Calling)
		out[Calling] = route{driver: ca, broker: cb}
	}
	return out
}
