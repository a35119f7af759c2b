// convocli runs a store conversation on the terminal: type an utterance,
// read (and optionally hear) the reply.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovc-dev/ovc/backend/internal/config"
	"github.com/ovc-dev/ovc/backend/internal/model/catalog"
	"github.com/ovc-dev/ovc/backend/internal/service/ai"
	"github.com/ovc-dev/ovc/backend/internal/service/dialog"
	"github.com/ovc-dev/ovc/backend/internal/service/inventory"
	"github.com/ovc-dev/ovc/backend/internal/service/records"
	"github.com/ovc-dev/ovc/backend/internal/service/session"
	"github.com/ovc-dev/ovc/backend/internal/service/speech"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	sessionFlag := flag.String("session", "", "session id, generated when empty")
	speak := flag.Bool("speak", false, "write each reply as an mp3 file when synthesis is configured")
	flag.Parse()

	sessionID := *sessionFlag
	if sessionID == "" {
		sessionID = fmt.Sprintf("console-%d", time.Now().UnixNano())
	}

	data, err := catalog.Load(cfg.Store.DataDir)
	if err != nil {
		log.Fatalf("failed to load store data: %v", err)
	}
	for _, name := range data.Defaulted {
		log.Printf("warning: %s missing, using seed defaults", name)
	}

	catalogStore := catalog.NewStore(data.Profile, data.Staff)
	ledger := inventory.NewLedger(data.Products)

	sink, err := records.NewFileSink(cfg.Store.RecordsDir)
	if err != nil {
		log.Fatalf("failed to prepare record directories: %v", err)
	}

	var responder dialog.Responder
	if cfg.AI.Enabled() {
		initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		arkResponder, err := ai.NewResponder(initCtx, data.Profile, cfg.AI, nil)
		cancel()
		if err != nil {
			log.Printf("warning: responder unavailable, free-form turns use the fallback reply: %v", err)
		} else {
			responder = arkResponder
		}
	}

	var synth *speech.Service
	if *speak {
		svc := speech.NewService(cfg.Speech, nil)
		if svc.SynthesisEnabled() {
			synth = svc
		} else {
			log.Printf("warning: synthesis not configured, continuing text-only")
		}
	}

	engine := dialog.NewEngine(catalogStore, session.NewStore(), ledger, sink, responder, nil)

	runConversation(engine, synth, sessionID, cfg.Server.TurnTimeout)
}

func runConversation(engine *dialog.Engine, synth *speech.Service, sessionID string, timeout time.Duration) {
	scanner := bufio.NewScanner(os.Stdin)

	say(synth, engine.Greeting())

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			say(synth, dialog.FarewellReply)
			return
		}

		utterance := strings.TrimSpace(scanner.Text())
		if utterance == "" {
			say(synth, dialog.NoInputReply)
			continue
		}

		if dialog.IsExit(utterance) {
			say(synth, dialog.FarewellReply)
			return
		}

		text, err := runTurn(engine, sessionID, utterance, timeout)
		if err != nil {
			log.Printf("turn failed: %v", err)
			continue
		}

		say(synth, text)
	}
}

func runTurn(engine *dialog.Engine, sessionID, utterance string, timeout time.Duration) (string, error) {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	reply, err := engine.Reply(ctx, sessionID, utterance)
	if err != nil {
		return "", err
	}

	return reply.Text()
}

func say(synth *speech.Service, text string) {
	fmt.Println(text)

	if synth == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	audio, err := synth.SynthesizeToBuffer(ctx, text, "")
	if err != nil {
		log.Printf("synthesis failed: %v", err)
		return
	}

	path := fmt.Sprintf("reply-%d.mp3", time.Now().UnixNano())
	if err := os.WriteFile(path, audio.Data, 0o644); err != nil {
		log.Printf("write audio failed: %v", err)
		return
	}
	log.Printf("reply audio written to %s", path)
}
