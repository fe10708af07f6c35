package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/tuannm99/heapsql/internal/sql/executor"
	"github.com/tuannm99/heapsql/sqlclient"
)

type execer interface {
	Exec(sql string) (*executor.Result, error)
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".heapsql_history"
	}
	return filepath.Join(home, ".heapsql_history")
}

func main() {
	var (
		addr       = flag.String("addr", "127.0.0.1:5433", "server address (tcp)")
		httpURL    = flag.String("http", "", "use the HTTP API at this base URL instead of tcp")
		timeout    = flag.Duration("timeout", 3*time.Second, "dial and request timeout")
		histPath   = flag.String("history", defaultHistoryPath(), "history file path")
		histMax    = flag.Int("history-max", 2000, "max history lines kept")
		oneShotSQL = flag.String("c", "", "execute one SQL statement and exit")
	)
	flag.Parse()

	var cli execer
	target := *addr
	if *httpURL != "" {
		cli = sqlclient.NewHTTPClient(*httpURL, *timeout)
		target = *httpURL
	} else {
		c, err := sqlclient.Dial(*addr, *timeout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dial: %v\n", err)
			os.Exit(1)
		}
		c.SetRWTimeout(*timeout)
		defer func() { _ = c.Close() }()
		cli = c
	}

	if strings.TrimSpace(*oneShotSQL) != "" {
		res, err := cli.Exec(*oneShotSQL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		printResult(os.Stdout, res)
		return
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:       prompt,
		HistoryFile:  *histPath,
		HistoryLimit: *histMax,
		// multiline statements are saved once, compacted, when complete
		DisableAutoSaveHistory: true,
		InterruptPrompt:        "^C",
		EOFPrompt:              "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = rl.Close() }()

	fmt.Printf("connected to %s\n", target)
	fmt.Println(`type \help for help`)
	repl(rl, cli, os.Stdout)
}

func repl(rl *readline.Instance, cli execer, out io.Writer) {
	var buf strings.Builder
	run := func(sql string) {
		res, err := cli.Exec(sql)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			return
		}
		printResult(out, res)
	}

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if buf.Len() > 0 {
				buf.Reset()
				rl.SetPrompt(prompt)
			}
			continue
		}
		if err != nil {
			fmt.Fprintln(out)
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if buf.Len() == 0 && (strings.HasPrefix(line, `\`) || line == "quit" || line == "exit") {
			_ = rl.SaveHistory(line)
			switch {
			case line == `\q` || line == "quit" || line == "exit":
				return
			case line == `\help`:
				fmt.Fprintln(out, helpText)
			default:
				if sql, ok := metaSQL(line); ok {
					run(sql)
				} else {
					fmt.Fprintf(out, "unknown command: %s\n", line)
				}
			}
			continue
		}

		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(line)
		if !statementComplete(buf.String()) {
			rl.SetPrompt(contPrompt)
			continue
		}

		stmt := compactOneLine(buf.String())
		buf.Reset()
		rl.SetPrompt(prompt)
		_ = rl.SaveHistory(stmt)
		run(stmt)
	}
}
