package registry

import (
	"log/slog"

	"github.com/zynthex/zynthex/pkg/adapters/agent"
	"github.com/zynthex/zynthex/pkg/adapters/alchemy"
	"github.com/zynthex/zynthex/pkg/adapters/coingate"
	"github.com/zynthex/zynthex/pkg/adapters/postgres"
	"github.com/zynthex/zynthex/pkg/adapters/webhook"
	"github.com/zynthex/zynthex/pkg/eventbus"
	"github.com/zynthex/zynthex/pkg/nodes/code"
	"github.com/zynthex/zynthex/pkg/nodes/email"
	"github.com/zynthex/zynthex/pkg/nodes/gmail"
	"github.com/zynthex/zynthex/pkg/nodes/googlesheets"
	"github.com/zynthex/zynthex/pkg/nodes/httprequest"
	"github.com/zynthex/zynthex/pkg/nodes/openai"
	"github.com/zynthex/zynthex/pkg/nodes/postgresnode"
	"github.com/zynthex/zynthex/pkg/nodes/slack"
	"github.com/zynthex/zynthex/pkg/nodes/telegram"
)

// NewDefaultRegistry builds a registry with every built-in provider adapter
// and node handler wired in. appURL is the public base URL external webhook
// callbacks are pointed at.
func NewDefaultRegistry(logger *slog.Logger, publisher eventbus.EventPublisher, appURL string) *Registry {
	registry := NewRegistry(logger)

	postgresAdapter := postgres.NewAdapter()

	registry.RegisterAdapter(alchemy.NewAdapter(appURL))
	registry.RegisterAdapter(coingate.NewAdapter(appURL))
	registry.RegisterAdapter(postgresAdapter)
	registry.RegisterAdapter(agent.NewAdapter())
	registry.RegisterAdapter(webhook.NewAdapter(publisher))

	registry.RegisterHandler(openai.NewNode())
	registry.RegisterHandler(email.NewNode())
	registry.RegisterHandler(gmail.NewNode())
	registry.RegisterHandler(googlesheets.NewNode())
	registry.RegisterHandler(httprequest.NewNode())
	registry.RegisterHandler(slack.NewNode())
	registry.RegisterHandler(telegram.NewNode())
	registry.RegisterHandler(code.NewNode())
	registry.RegisterHandler(postgresnode.NewNode(postgresAdapter))

	return registry
}
