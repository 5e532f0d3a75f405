package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/dto"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/service"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor/encoder"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

const helpText = `Commands:
  /explain <question>   explain a concept from your files
  /practice <topic>     generate a practice problem with solution
  /mode explain|practice  set the mode used for plain lines
  /add <path>...        upload more files (quote paths with spaces)
  /remove <name>        drop a file by name
  /files                list uploaded files
  /reset                clear the conversation and files
  /help                 show this help
  /quit                 exit`

var (
	assistantColor = color.New(color.FgCyan)
	problemColor   = color.New(color.FgYellow, color.Bold)
	solutionColor  = color.New(color.FgGreen)
	errorColor     = color.New(color.FgRed)
	infoColor      = color.New(color.Faint)
)

type repl struct {
	svc       service.ITutorService
	sessionID uuid.UUID
	mode      tutor.TutorMode
	out       io.Writer
}

func newREPL(svc service.ITutorService, sessionID uuid.UUID, out io.Writer) *repl {
	return &repl{svc: svc, sessionID: sessionID, mode: tutor.ModeExplainConcept, out: out}
}

// run reads lines until EOF or /quit.
func (r *repl) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Fprint(r.out, r.prompt())
	for scanner.Scan() {
		if quit := r.handle(ctx, scanner.Text()); quit {
			return nil
		}
		fmt.Fprint(r.out, r.prompt())
	}
	return scanner.Err()
}

func (r *repl) prompt() string {
	if r.mode == tutor.ModePracticeProblem {
		return "practice> "
	}
	return "explain> "
}

// handle executes one input line and reports whether the loop should stop.
func (r *repl) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		r.ask(ctx, r.mode, line)
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(r.out, helpText)
	case "/explain":
		r.ask(ctx, tutor.ModeExplainConcept, arg)
	case "/practice":
		r.ask(ctx, tutor.ModePracticeProblem, arg)
	case "/mode":
		r.setMode(arg)
	case "/add":
		r.add(ctx, splitPaths(arg))
	case "/remove":
		r.remove(ctx, arg)
	case "/files":
		r.listFiles(ctx)
	case "/reset":
		if _, err := r.svc.Reset(ctx, r.sessionID); err != nil {
			errorColor.Fprintln(r.out, err.Error())
			return false
		}
		infoColor.Fprintln(r.out, "Conversation and files cleared.")
	default:
		errorColor.Fprintf(r.out, "Unknown command %s (try /help)\n", cmd)
	}
	return false
}

func (r *repl) setMode(arg string) {
	switch strings.ToLower(arg) {
	case "explain", "explain_concept":
		r.mode = tutor.ModeExplainConcept
	case "practice", "practice_problem":
		r.mode = tutor.ModePracticeProblem
	default:
		errorColor.Fprintln(r.out, "Mode must be explain or practice")
	}
}

func (r *repl) ask(ctx context.Context, mode tutor.TutorMode, text string) {
	res, err := r.svc.SendTurn(ctx, r.sessionID, &dto.SendTurnRequest{Mode: string(mode), Text: text})
	if err != nil {
		errorColor.Fprintln(r.out, err.Error())
		return
	}
	r.printTurn(res.Reply)
	if res.LastError != "" {
		errorColor.Fprintln(r.out, res.LastError)
	}
}

func (r *repl) printTurn(t dto.TurnDTO) {
	if t.Type == dto.TurnTypePracticeProblem {
		problemColor.Fprintln(r.out, "Practice Problem")
		fmt.Fprintln(r.out, t.Problem)
		solutionColor.Fprintln(r.out, "Solution")
		fmt.Fprintln(r.out, t.Solution)
		return
	}
	assistantColor.Fprintln(r.out, t.Text)
}

func (r *repl) add(ctx context.Context, paths []string) {
	if len(paths) == 0 {
		errorColor.Fprintln(r.out, "Usage: /add <path>...")
		return
	}
	files := make([]encoder.File, 0, len(paths))
	for _, p := range paths {
		files = append(files, encoder.FromPath(p))
	}
	res, err := r.svc.UploadFiles(ctx, r.sessionID, files)
	if err != nil {
		errorColor.Fprintln(r.out, err.Error())
		return
	}
	infoColor.Fprintf(r.out, "Added %d file(s), %d total.\n", len(res.Added), res.Total)
}

func (r *repl) remove(ctx context.Context, name string) {
	res, err := r.svc.RemoveFile(ctx, r.sessionID, name)
	if err != nil {
		errorColor.Fprintln(r.out, err.Error())
		return
	}
	infoColor.Fprintf(r.out, "Removed %d file(s), %d left.\n", res.Removed, res.Total)
}

func (r *repl) listFiles(ctx context.Context) {
	state, err := r.svc.GetSession(ctx, r.sessionID)
	if err != nil {
		errorColor.Fprintln(r.out, err.Error())
		return
	}
	if len(state.Files) == 0 {
		infoColor.Fprintln(r.out, "No files uploaded.")
		return
	}
	for _, f := range state.Files {
		fmt.Fprintf(r.out, "  %s (%s, %d bytes)\n", f.DisplayName, f.MimeType, f.Size)
	}
}

// splitPaths reads /add arguments. A single path with spaces works unquoted
// when it exists; otherwise double or single quotes group words.
func splitPaths(arg string) []string {
	if arg == "" {
		return nil
	}
	if _, err := os.Stat(arg); err == nil {
		return []string{arg}
	}

	var (
		paths   []string
		current strings.Builder
		quote   rune
		inWord  bool
	)
	for _, r := range arg {
		switch {
		case quote != 0 && r == quote:
			quote = 0
		case quote == 0 && (r == '"' || r == '\''):
			quote = r
			inWord = true
		case quote == 0 && unicode.IsSpace(r):
			if inWord {
				paths = append(paths, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}
	if inWord {
		paths = append(paths, current.String())
	}
	return paths
}
