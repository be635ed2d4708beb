package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/redis/go-redis/v9"

	"github.com/example/private-chat-demo/modules/account"
	"github.com/example/private-chat-demo/modules/api"
	"github.com/example/private-chat-demo/modules/broadcast"
	"github.com/example/private-chat-demo/modules/messaging"
	"github.com/example/private-chat-demo/modules/presence"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Private Chat Demo - two-party messaging over Fiber + EventBus ===")

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Presence lives in process memory by default; point REDIS_ADDR at
	// a Redis instance to share it across replicas.
	registry := newRegistry()

	// Create modules
	accountModule := account.NewModule()
	messagingModule := messaging.NewModule(registry)
	broadcastModule := broadcast.NewModule()
	apiModule := api.NewModule()

	// Inject the hub and messaging services into the API module.
	// (Done manually because neither is exposed via ServiceContainer.)
	apiModule.SetHub(broadcastModule.GetHub())
	apiModule.SetMessaging(messagingModule)

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - account: identity + token services (ServiceProviderModule)
	// - messaging: message store, dispatch and lifecycle (EventEmitterModule)
	// - broadcast: WebSocket hub (EventConsumerModule)
	// - api: Fiber HTTP/WebSocket server (depends on account)
	app.Register(accountModule)
	app.Register(messagingModule)
	app.Register(broadcastModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

// newRegistry selects the presence backend from the environment.
func newRegistry() presence.Registry {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return presence.NewMemoryRegistry()
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	log.Printf("Using Redis presence registry at %s", addr)
	return presence.NewRedisRegistry(client, "presence")
}

func printStartupInfo() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health                        - Health check")
	log.Println("  POST   /api/account/register          - Create an account")
	log.Println("  POST   /api/account/login             - Log in")
	log.Println("  POST   /api/messages                  - Send a message")
	log.Println("  GET    /api/messages                  - List messages (container=Unread|Inbox|Outbox)")
	log.Println("  GET    /api/messages/thread/:username - Conversation thread")
	log.Println("  DELETE /api/messages/:id              - Delete a message")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", port)
	log.Println("  Connect with: ws://localhost:3000/ws?user=<peer>&access_token=<jwt>")
	log.Println("  Inbound frame types: send-message")
	log.Println("  Outbound frame types: receive-message-thread, updated-group,")
	log.Println("                        new-message, new-message-notification")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
