package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/rahul/gridmind/internal/agent"
	"github.com/rahul/gridmind/internal/engine"
	"github.com/rahul/gridmind/internal/gateway"
	"github.com/rahul/gridmind/internal/governance"
	"github.com/rahul/gridmind/internal/grid"
	"github.com/rahul/gridmind/internal/observability"
	"github.com/rahul/gridmind/internal/plan"
	"github.com/rahul/gridmind/internal/store"
	"github.com/rahul/gridmind/internal/tools"
	"github.com/rahul/gridmind/pkg/config"
)

func main() {
	observability.PrintBanner()
	observability.InitializeTerminal()

	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg := config.LoadConfig(configPath)

	logger := observability.NewLogger()

	st, err := store.New(cfg.Storage.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	// The document is either the built-in in-memory grid or a bridge to
	// a spreadsheet executor webhook.
	var applier engine.Applier
	var undoer engine.Undoer
	var sheets gateway.SheetSource

	switch cfg.Document.Mode {
	case "bridge":
		if cfg.Document.BridgeURL == "" {
			log.Fatal("document.bridge_url is required in bridge mode")
		}
		bridge := grid.NewBridge(cfg.Document.BridgeURL)
		applier, undoer = bridge, bridge
	default:
		doc := grid.NewDocument(cfg.Document.Sheet)
		applier, undoer = doc, doc
		sheets = doc
	}

	// Initialize Tools
	builder := tools.NewPlanBuilder()
	registry := tools.NewRegistry()
	tools.RegisterPlanTools(registry, builder)
	tools.RegisterReadTools(registry, builder)
	registry.Register(tools.NewFormulaReferenceTool())

	prompts := agent.NewPromptManager(cfg.App.Prompts)
	gov := governance.NewDefaultPolicyEngine()

	// Initialize LLM (using default enabled provider)
	pName, pCfg := cfg.GetDefaultProvider()
	if pName == "" {
		log.Fatal("No enabled provider found in config")
	}

	var llm llms.Model
	switch pName {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	default:
		log.Fatalf("Provider %s not yet implemented in main", pName)
	}

	if err != nil {
		log.Fatal(err)
	}

	runner := engine.NewRunner(applier, undoer,
		engine.WithPolicy(gov),
		engine.WithLogger(logger),
		engine.WithStepDelay(time.Duration(cfg.Engine.StepDelayMs)*time.Millisecond),
		engine.WithObserver(func(ev engine.StepEvent) {
			switch ev.Status {
			case plan.StatusExecuting:
				log.Printf("\033[96m[ STEP ] %d: %s...\033[0m", ev.Index, ev.Description)
			case plan.StatusDone:
				log.Printf("\033[92m[ STEP ] %d: %s\033[0m", ev.Index, ev.Result)
			case plan.StatusError:
				log.Printf("\033[91m[ STEP ] %d: %s\033[0m", ev.Index, ev.Result)
			}
		}),
	)

	service := &gateway.Service{
		Planner: agent.NewPlannerBrain(llm, registry, builder, st, prompts, logger),
		Chat:    agent.NewChatBrain(llm, st, prompts),
		Runner:  runner,
		Store:   st,
		Sheets:  sheets,
		Sheet:   cfg.Document.Sheet,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var gateways []gateway.Messenger

	if httpCfg, ok := cfg.GetGateway("http"); ok {
		hg := gateway.NewHTTPGateway(httpCfg.Addr, service)
		gateways = append(gateways, hg)
		go func() {
			if err := hg.Start(); err != nil {
				log.Printf("\033[91m[ FAIL ] HTTP GATEWAY CRITICAL ERROR: %v\033[0m", err)
				stop()
			}
		}()
	}

	if tgCfg, ok := cfg.GetGateway("telegram"); ok {
		tg, err := gateway.NewTelegramGateway(tgCfg.Token, service)
		if err != nil {
			log.Fatal(err)
		}
		gateways = append(gateways, tg)
		go func() {
			if err := tg.Start(); err != nil {
				log.Printf("\033[91m[ FAIL ] TELEGRAM GATEWAY CRITICAL ERROR: %v\033[0m", err)
				stop()
			}
		}()
	}

	if dcCfg, ok := cfg.GetGateway("discord"); ok {
		dc, err := gateway.NewDiscordGateway(dcCfg.Token, service)
		if err != nil {
			log.Fatal(err)
		}
		gateways = append(gateways, dc)
		go func() {
			if err := dc.Start(); err != nil {
				log.Printf("\033[91m[ FAIL ] DISCORD GATEWAY CRITICAL ERROR: %v\033[0m", err)
				stop()
			}
		}()
	}

	if len(gateways) == 0 {
		log.Fatal("No gateway is enabled in config")
	}

	// Start Live Resource Dashboard (1-second updates)
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.PrintLiveStatus()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.Heartbeat()
				logger.LogHeartbeat()
			}
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	for _, g := range gateways {
		if err := g.Stop(); err != nil {
			log.Printf("Error stopping gateway: %v", err)
		}
	}

	// Reset terminal aesthetics
	observability.CleanupTerminal()

	// Give a short time for final logs/syncs
	time.Sleep(500 * time.Millisecond)
	log.Println("\033[95m[ EXIT ] CORE DE-INITIALIZED. GOODBYE.\033[0m")
}
