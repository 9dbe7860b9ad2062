package terminal

import (
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// lineReader is the prompt abstraction the read loop consumes. The production
// implementation wraps readline; tests substitute a scripted reader.
type lineReader interface {
	// ReadLine blocks for the next line. io.EOF ends the loop cleanly.
	ReadLine() (string, error)
	Close() error
}

type readlineReader struct {
	rl *readline.Instance
}

func newReadlineReader(cfg Config) (lineReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cfg.Prompt,
		HistoryFile:       cfg.HistoryFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return nil, err
	}
	return &readlineReader{rl: rl}, nil
}

func (r *readlineReader) ReadLine() (string, error) {
	for {
		line, err := r.rl.Readline()
		if err == readline.ErrInterrupt {
			// ^C on an empty line exits, on a non-empty line discards it.
			if len(line) == 0 {
				return "", io.EOF
			}
			continue
		}
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
}

func (r *readlineReader) Close() error {
	return r.rl.Close()
}
