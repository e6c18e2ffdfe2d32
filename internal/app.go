package internal

import (
	"github.com/veltacrm/whatsapp-bridge/internal/connection"
	"github.com/veltacrm/whatsapp-bridge/internal/identity"
	"github.com/veltacrm/whatsapp-bridge/internal/inbound"
	"github.com/veltacrm/whatsapp-bridge/internal/media"
	"github.com/veltacrm/whatsapp-bridge/internal/messaging"
	"github.com/veltacrm/whatsapp-bridge/internal/reconcile"
	"github.com/veltacrm/whatsapp-bridge/internal/store"
	"github.com/veltacrm/whatsapp-bridge/pkg/gateway"
	"github.com/veltacrm/whatsapp-bridge/pkg/storage"
)

// App wires every service and controller against one store handle and one
// gateway client.
type App struct {
	Store *store.Store

	Connections *connection.Controller
	Messaging   *messaging.Controller
	Media       *media.Controller
	Identity    *identity.Controller
	Reconcile   *reconcile.Controller
	Inbound     *inbound.Controller

	connectionSvc *connection.Service
	sweeper       *reconcile.Sweeper
}

func NewApp() (*App, error) {
	st, err := store.Open()
	if err != nil {
		return nil, err
	}

	gw, err := gateway.New()
	if err != nil {
		return nil, err
	}

	objects := storage.New()

	connectionSvc := connection.NewService(gw, st.Connections)
	messagingSvc := messaging.NewService(gw, connectionSvc, st.Messages)
	engine := media.NewEngine(gw, st.Messages, objects)
	resolver := identity.NewResolver(gw, st.Contacts)
	sweeper := reconcile.NewSweeper(resolver, st.Contacts)
	inboundSvc := inbound.NewService(st.Connections, st.Contacts, st.Messages, resolver, engine)

	return &App{
		Store:         st,
		Connections:   connection.NewController(connectionSvc),
		Messaging:     messaging.NewController(messagingSvc),
		Media:         media.NewController(engine),
		Identity:      identity.NewController(resolver, connectionSvc),
		Reconcile:     reconcile.NewController(sweeper, connectionSvc),
		Inbound:       inbound.NewController(inboundSvc),
		connectionSvc: connectionSvc,
		sweeper:       sweeper,
	}, nil
}
