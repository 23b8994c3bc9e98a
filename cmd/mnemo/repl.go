package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hpungsan/mnemo/internal/errors"
	"github.com/hpungsan/mnemo/internal/ops"
)

const replHelp = `Enter a number to convert it. Commands:
  :r               regenerate unlocked slots
  :l N             toggle the lock on slot N
  :la / :ua        lock / unlock every slot
  :s N C           select candidate C for slot N
  :o N WORD        override slot N with WORD and remember it
  :p [LEN] [THEME] build a PIN from the current words
  :reset           clear the session
  :h               show this help
  :q               quit`

// runREPL drives one session from line-oriented input until :q or EOF.
func runREPL(ctx context.Context, app *ops.App, in io.Reader, out io.Writer) error {
	s := app.Sessions.Create()
	defer app.Sessions.Delete(s.ID())

	r := &repl{app: app, id: s.ID(), out: out}
	fmt.Fprintln(out, "mnemo repl (:h for help)")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == ":q" || line == ":quit" {
			return nil
		}
		if err := r.exec(ctx, line); err != nil {
			fmt.Fprintln(out, formatError(err))
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

type repl struct {
	app *ops.App
	id  string
	out io.Writer
}

func (r *repl) exec(ctx context.Context, line string) error {
	if !strings.HasPrefix(line, ":") {
		out, err := r.app.Convert(ctx, ops.ConvertInput{SessionID: r.id, Input: line})
		if err != nil {
			return err
		}
		r.print(out)
		return nil
	}

	fields := strings.Fields(line)
	args := fields[1:]
	var (
		out *ops.SessionOutput
		err error
	)
	switch fields[0] {
	case ":h", ":help":
		fmt.Fprintln(r.out, replHelp)
		return nil
	case ":r":
		out, err = r.app.Regenerate(ctx, ops.SessionInput{SessionID: r.id})
	case ":la":
		out, err = r.app.Lock(ctx, ops.LockInput{SessionID: r.id, Action: ops.LockAll})
	case ":ua":
		out, err = r.app.Lock(ctx, ops.LockInput{SessionID: r.id, Action: ops.LockClearAll})
	case ":l":
		n, perr := intArgs(args, 1)
		if perr != nil {
			return perr
		}
		out, err = r.app.Lock(ctx, ops.LockInput{SessionID: r.id, Action: ops.LockToggle, Index: n[0]})
	case ":s":
		n, perr := intArgs(args, 2)
		if perr != nil {
			return perr
		}
		out, err = r.app.Select(ctx, ops.SelectInput{SessionID: r.id, Index: n[0], Candidate: n[1]})
	case ":o":
		if len(args) < 2 {
			return errors.NewInvalidRequest("usage: :o N WORD")
		}
		n, perr := intArgs(args[:1], 1)
		if perr != nil {
			return perr
		}
		out, err = r.app.Override(ctx, ops.OverrideInput{SessionID: r.id, Index: n[0], Word: strings.Join(args[1:], " ")})
	case ":p":
		return r.pin(ctx, args)
	case ":reset":
		out, err = r.app.ResetSession(ctx, ops.SessionInput{SessionID: r.id})
	default:
		return errors.NewInvalidRequest(fmt.Sprintf("unknown command %s (:h for help)", fields[0]))
	}
	if err != nil {
		return err
	}
	if !out.Applied {
		fmt.Fprintln(r.out, "(no change)")
	}
	r.print(out)
	return nil
}

func (r *repl) pin(ctx context.Context, args []string) error {
	input := ops.PinInput{SessionID: r.id}
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			input.Theme = args[0]
		} else {
			input.Length = n
			if len(args) > 1 {
				input.Theme = args[1]
			}
		}
	}
	res, err := r.app.Pin(ctx, input)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "PIN %s", res.PIN)
	if len(res.UsedWords) > 0 {
		fmt.Fprintf(r.out, "  (%s)", strings.Join(res.UsedWords, " "))
	}
	if res.Padded {
		fmt.Fprint(r.out, "  padded")
	}
	fmt.Fprintln(r.out)
	return nil
}

func (r *repl) print(out *ops.SessionOutput) {
	if len(out.Slots) == 0 {
		fmt.Fprintf(r.out, "[%s]\n", out.State)
		return
	}
	for i, sl := range out.Slots {
		mark := ""
		if sl.Locked {
			mark = " [locked]"
		}
		fmt.Fprintf(r.out, "%d  %-3s  %s%s  (%s)\n", i, sl.Chunk.Value, sl.Selected, mark, strings.Join(sl.Candidates, ", "))
	}
	fmt.Fprintf(r.out, "= %s\n", strings.Join(out.Words, " "))
}

// intArgs parses the first n arguments as integers.
func intArgs(args []string, n int) ([]int, error) {
	if len(args) < n {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("expected %d numeric argument(s)", n))
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		v, err := strconv.Atoi(args[i])
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("%q is not a number", args[i]))
		}
		out[i] = v
	}
	return out, nil
}
