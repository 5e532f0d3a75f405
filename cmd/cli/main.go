package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/bootstrap"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/config"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/pkg/logger"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/repository/memory"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/service"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/events"
	pktNats "github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/nats"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor/encoder"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor/prompt"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor/response"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	courseName string
	provider   string
	model      string
	logPath    string
	natsURL    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tutor [files...]",
		Short: "Ask questions about your course files from the terminal",
		Long: `tutor uploads the given lecture notes and exams, then opens an
interactive session. Plain lines are sent in the current mode; type /help for commands.`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE:         runTutor,
	}
	rootCmd.Flags().StringVarP(&courseName, "course", "c", "", "Course name used in the tutor instruction (default from COURSE_NAME)")
	rootCmd.Flags().StringVarP(&provider, "provider", "p", "", "Model backend: gemini or ollama (default from LLM_PROVIDER)")
	rootCmd.Flags().StringVarP(&model, "model", "m", "", "Model name (default from LLM_MODEL)")
	rootCmd.Flags().StringVar(&logPath, "log", "logs/tutor_cli.log", "Log file")

	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Print tutor events from NATS as they arrive",
		Args:  cobra.NoArgs,
		RunE:  runEvents,
	}
	eventsCmd.Flags().StringVar(&natsURL, "nats", "", "NATS URL (default from NATS_URL)")
	rootCmd.AddCommand(eventsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runTutor(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if courseName != "" {
		cfg.Tutor.CourseName = courseName
	}
	if provider != "" {
		cfg.Ai.LLMProvider = provider
	}
	if model != "" {
		cfg.Ai.LLMModel = model
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	// file-only logging keeps the terminal for the conversation
	log := logger.NewIsolatedLogger(logPath)
	defer log.Sync()

	exec, err := bootstrap.NewExecutor(cfg, log)
	if err != nil {
		return err
	}
	defer exec.Close()

	svc := service.NewTutorService(
		memory.NewSessionRepository(cfg.Tutor.SessionTTL),
		prompt.NewBuilder(cfg.Tutor.CourseName),
		exec,
		response.NewInterpreter(log),
		nil,
		nil,
		log,
	)

	session, err := svc.CreateSession(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	color.New(color.FgCyan, color.Bold).Fprintf(out, "%s tutor\n", session.CourseName)

	r := newREPL(svc, session.Id, out)
	if len(args) > 0 {
		files := make([]encoder.File, 0, len(args))
		for _, a := range args {
			files = append(files, encoder.FromPath(a))
		}
		res, err := svc.UploadFiles(ctx, session.Id, files)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Loaded %d file(s).\n", res.Total)
	} else {
		fmt.Fprintln(out, "No files loaded yet; use /add <path>.")
	}
	fmt.Fprintln(out, "Type /help for commands.")

	return r.run(ctx, cmd.InOrStdin())
}

func runEvents(cmd *cobra.Command, _ []string) error {
	url := natsURL
	if url == "" {
		url = config.Load().App.NatsURL
	}
	if url == "" {
		return fmt.Errorf("no NATS URL: pass --nats or set NATS_URL")
	}

	sub, err := pktNats.NewSubscriber(url)
	if err != nil {
		return err
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	err = sub.Subscribe(ctx, pktNats.AllSubjects, "", func(_ context.Context, e events.Event) error {
		c := color.New(color.FgGreen)
		if e.EventType() == events.TypeStructuredDecodeFailed {
			c = color.New(color.FgYellow)
		}
		payload, err := json.Marshal(e.Payload())
		if err != nil {
			return err
		}
		c.Fprintf(out, "%s %s ", e.Timestamp().Format("15:04:05"), e.EventType())
		fmt.Fprintln(out, string(payload))
		return nil
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}
