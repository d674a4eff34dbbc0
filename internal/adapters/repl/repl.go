package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"procurement-docs/internal/core"
	"procurement-docs/internal/render"
)

// Options configures an editing session.
type Options struct {
	// DuplicateDelay is the debounce before the document-number check runs.
	DuplicateDelay time.Duration
	// ClampQuantities bounds delivered by ordered and received by delivered as they
	// are typed. The store itself accepts any value.
	ClampQuantities bool
	Numbers         render.NumberFormatter
	PDF             render.PDFOptions
}

var errExit = errors.New("exit")

// Run starts the interactive editing loop over repo. It reads commands from reader
// and writes everything to out. A leading slash on commands is optional.
func Run(ctx context.Context, repo core.DocumentRepository, reader *bufio.Reader, out io.Writer, opts Options) {
	store := core.NewEditableDocumentStore()
	sess := core.NewEditSession(store, repo)

	results := make(chan core.DuplicateCheckResult, 1)
	checker := core.NewDuplicateChecker(repo, opts.DuplicateDelay, func(res core.DuplicateCheckResult) {
		// Keep only the newest result for the prompt loop.
		for {
			select {
			case results <- res:
				return
			default:
			}
			select {
			case <-results:
			default:
			}
		}
	})
	defer checker.Wait()

	unsubscribe := store.Subscribe(func(ev core.StoreEvent) {
		if ev.Kind != core.EventHeaderUpdated {
			return
		}
		if ev.Field != core.HeaderDocumentNumber.String() && ev.Field != core.HeaderDocumentDate.String() {
			return
		}
		snap := store.Snapshot()
		checker.Schedule(snap.Type, strings.TrimSpace(snap.Header.DocumentNumber), snap.Header.DocumentDate, snap.ID)
	})
	defer unsubscribe()

	e := &editor{ctx: ctx, repo: repo, sess: sess, store: store, checker: checker, results: results, out: out, opts: opts}

	fmt.Fprintln(out, "Procurement Document Editor")
	fmt.Fprintln(out, "Open a document with 'open <type> <id>' or start one with 'new <type>'. Type 'help' for commands.")
	fmt.Fprintln(out, strings.Repeat("-", 70))

	for {
		select {
		case res := <-results:
			printDuplicate(out, res)
		default:
		}

		fmt.Fprintf(out, "\n%s> ", e.prompt())
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			if err != nil {
				if e.sess.Dirty() {
					fmt.Fprintln(out, "\nUnsaved changes discarded.")
				}
				return
			}
			continue
		}

		if derr := e.dispatch(input); derr != nil {
			if derr == errExit {
				fmt.Fprintln(out, "Goodbye!")
				return
			}
			fmt.Fprintf(out, "Error: %v\n", derr)
		}
		if err != nil {
			return
		}
	}
}

type editor struct {
	ctx     context.Context
	repo    core.DocumentRepository
	sess    *core.EditSession
	store   core.EditableDocumentStore
	checker *core.DuplicateChecker
	results chan core.DuplicateCheckResult
	out     io.Writer
	opts    Options
	opened  bool
}

func (e *editor) drainResults() {
	for {
		select {
		case <-e.results:
		default:
			return
		}
	}
}

func (e *editor) prompt() string {
	if !e.opened {
		return ""
	}
	snap := e.store.Snapshot()
	label := snap.Header.DocumentNumber
	if label == "" {
		label = "(unnumbered)"
	}
	p := fmt.Sprintf("%s %s", snap.Type, label)
	if e.store.EditMode() {
		p += " [edit]"
	}
	if e.sess.Dirty() {
		p += "*"
	}
	return p
}

func (e *editor) dispatch(input string) error {
	tokens := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(tokens) == 0 {
		return nil
	}
	cmd := strings.ToLower(tokens[0])
	args := tokens[1:]

	switch cmd {
	case "list", "ls":
		if len(args) < 1 {
			fmt.Fprintln(e.out, "Usage: list <PO|DC|INV|SRV>")
			return nil
		}
		t, err := core.ParseDocumentType(args[0])
		if err != nil {
			return err
		}
		docs, err := e.repo.ListDocuments(e.ctx, t)
		if err != nil {
			return err
		}
		printRegister(e.out, t, docs, e.opts.Numbers)

	case "open", "o":
		if len(args) < 2 {
			fmt.Fprintln(e.out, "Usage: open <type> <id>")
			return nil
		}
		t, err := core.ParseDocumentType(args[0])
		if err != nil {
			return err
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid document id %q", args[1])
		}
		if err := e.sess.Open(e.ctx, t, id); err != nil {
			return err
		}
		e.opened = true
		printDocument(e.out, e.store, e.opts.Numbers)

	case "new":
		if len(args) < 1 {
			fmt.Fprintln(e.out, "Usage: new <type>")
			return nil
		}
		t, err := core.ParseDocumentType(args[0])
		if err != nil {
			return err
		}
		e.sess.NewDocument(t)
		e.opened = true
		fmt.Fprintf(e.out, "New %s started in edit mode.\n", t.Title())

	case "help", "h", "?":
		printHelp(e.out)

	case "exit", "quit", "q":
		return errExit

	default:
		if !e.opened {
			if isDocumentCommand(cmd) {
				fmt.Fprintln(e.out, "No document open. Use 'open <type> <id>' or 'new <type>'.")
				return nil
			}
			fmt.Fprintf(e.out, "Unknown command: %s  (type help for all commands)\n", cmd)
			return nil
		}
		return e.dispatchDocument(cmd, args)
	}
	return nil
}

func isDocumentCommand(cmd string) bool {
	switch cmd {
	case "show", "s", "edit", "set", "add", "rm", "remove", "save", "cancel", "reload", "check", "number", "pdf":
		return true
	}
	return false
}

// dispatchDocument handles commands that need an open document.
func (e *editor) dispatchDocument(cmd string, args []string) error {
	switch cmd {
	case "show", "s":
		printDocument(e.out, e.store, e.opts.Numbers)

	case "edit":
		e.sess.BeginEdit()
		fmt.Fprintln(e.out, "Edit mode on.")

	case "set":
		return e.set(args)

	case "add":
		return e.add(args)

	case "rm", "remove":
		return e.remove(args)

	case "save":
		saved, err := e.sess.Save(e.ctx)
		if err != nil {
			var pe *core.PersistenceError
			if errors.As(err, &pe) && pe.Retryable() {
				fmt.Fprintln(e.out, "Save failed; your edits are kept. Try 'save' again.")
			} else if errors.Is(err, core.ErrVersionConflict) {
				fmt.Fprintln(e.out, "The document changed since you opened it. Use 'reload' to fetch the current copy.")
			}
			return err
		}
		fmt.Fprintf(e.out, "Saved %s %s (id %d, version %d).\n",
			saved.Type, saved.Header.DocumentNumber, saved.ID, saved.Version)

	case "cancel":
		e.sess.Cancel()
		fmt.Fprintln(e.out, "Edits discarded.")

	case "reload":
		if err := e.sess.Reload(e.ctx); err != nil {
			return err
		}
		printDocument(e.out, e.store, e.opts.Numbers)

	case "check":
		snap := e.store.Snapshot()
		number := strings.TrimSpace(snap.Header.DocumentNumber)
		if number == "" {
			fmt.Fprintln(e.out, "No document number to check.")
			return nil
		}
		e.checker.Schedule(snap.Type, number, snap.Header.DocumentDate, snap.ID)
		e.checker.Wait()
		// The background delivery of this result is already printed below.
		e.drainResults()
		res, ok := e.checker.Latest()
		if !ok {
			return fmt.Errorf("check failed for %s; the number could not be verified", number)
		}
		printDuplicate(e.out, res)

	case "number":
		return e.assignNumber()

	case "pdf":
		if len(args) < 1 {
			fmt.Fprintln(e.out, "Usage: pdf <output-file>")
			return nil
		}
		return e.writePDF(args[0])

	default:
		fmt.Fprintf(e.out, "Unknown command: %s  (type help for all commands)\n", cmd)
	}
	return nil
}
