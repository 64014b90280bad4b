// Command taskflow is the TaskFlow CLI client.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/GoCodeAlone/taskflow/internal/version"
)

const defaultServer = "http://localhost:8000"

func main() {
	serverURL := flag.String("server", envOr("TASKFLOW_SERVER", defaultServer), "taskflow server URL")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cli := &Client{
		BaseURL:    strings.TrimRight(*serverURL, "/"),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
	if err := run(cli, os.Stdout, args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `taskflow — TaskFlow CLI

Usage:
  taskflow [flags] <command> [args]

Flags:
  --server  <url>    server URL (default: http://localhost:8000, or $TASKFLOW_SERVER)

Commands:
  version                                  print version
  health                                   show server health
  tasks [--status s] [--priority p]        list tasks
  create --title t [--description d] [--status s] [--priority p]
  get <id>                                 show a task
  update <id> [--title t] [--description d] [--status s] [--priority p]
  delete <id>                              delete a task
`)
}

// run dispatches one command and writes human output to out.
func run(c *Client, out io.Writer, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "version":
		fmt.Fprintf(out, "taskflow %s\n", version.String())
		return nil
	case "health":
		status, err := c.Health()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "status: %s\n", status)
		return nil
	case "tasks":
		return cmdTasks(c, out, rest)
	case "create":
		return cmdCreate(c, out, rest)
	case "get":
		if len(rest) != 1 {
			return fmt.Errorf("usage: taskflow get <id>")
		}
		t, err := c.GetTask(rest[0])
		if err != nil {
			return err
		}
		printTask(out, t)
		return nil
	case "update":
		return cmdUpdate(c, out, rest)
	case "delete":
		if len(rest) != 1 {
			return fmt.Errorf("usage: taskflow delete <id>")
		}
		if err := c.DeleteTask(rest[0]); err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted task %s\n", rest[0])
		return nil
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

// --- tasks ---

func cmdTasks(c *Client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("tasks", flag.ContinueOnError)
	status := fs.String("status", "", "filter by status")
	priority := fs.String("priority", "", "filter by priority")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tasks, err := c.ListTasks(*status, *priority)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Fprintln(out, "no tasks")
		return nil
	}
	fmt.Fprintf(out, "%-6s %-30s %-12s %-8s\n", "ID", "TITLE", "STATUS", "PRIORITY")
	fmt.Fprintln(out, strings.Repeat("-", 59))
	for _, t := range tasks {
		fmt.Fprintf(out, "%-6d %-30s %-12s %-8s\n",
			t.ID, truncate(t.Title, 29), t.Status, t.Priority)
	}
	return nil
}

// --- create / update ---

// fieldFlags registers the task field flags and returns a function that
// collects only the flags that were set explicitly.
func fieldFlags(fs *flag.FlagSet) func() map[string]string {
	names := []string{"title", "description", "status", "priority"}
	vals := make(map[string]*string, len(names))
	for _, n := range names {
		vals[n] = fs.String(n, "", "task "+n)
	}
	return func() map[string]string {
		set := map[string]string{}
		fs.Visit(func(f *flag.Flag) {
			if v, ok := vals[f.Name]; ok {
				set[f.Name] = *v
			}
		})
		return set
	}
}

func cmdCreate(c *Client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fields := fieldFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	f := fields()
	if _, ok := f["title"]; !ok {
		return fmt.Errorf("usage: taskflow create --title <title>")
	}
	t, err := c.CreateTask(f)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created task %d\n", t.ID)
	return nil
}

func cmdUpdate(c *Client, out io.Writer, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: taskflow update <id> [--title t] [--status s] ...")
	}
	id := args[0]
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	fields := fieldFlags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	t, err := c.UpdateTask(id, fields())
	if err != nil {
		return err
	}
	printTask(out, t)
	return nil
}

// --- helpers ---

func printTask(out io.Writer, t *Task) {
	fmt.Fprintf(out, "id:          %d\n", t.ID)
	fmt.Fprintf(out, "title:       %s\n", t.Title)
	fmt.Fprintf(out, "description: %s\n", t.Description)
	fmt.Fprintf(out, "status:      %s\n", t.Status)
	fmt.Fprintf(out, "priority:    %s\n", t.Priority)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
