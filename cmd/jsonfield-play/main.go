// Command jsonfield-play walks through the field operations against a
// configured database: inserts two documents, mutates one row in place,
// searches by extracted values and finally runs table-wide statements.
//
// Configuration comes from an optional YAML or JSON file and JSONFIELD_*
// environment variables, e.g.:
//
//	JSONFIELD_DATABASE_TYPE=mysql JSONFIELD_DATABASE_HOST=localhost \
//	JSONFIELD_DATABASE_DATABASE=test JSONFIELD_DATABASE_USERNAME=root \
//	jsonfield-play -temporary=false
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/rzpsarthak13/jsonfield/pkg/jsonfield"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "jsonfield-play: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	configFile := flag.String("config", "", "YAML or JSON configuration file")
	temporary := flag.Bool("temporary", true, "create test_table as a temporary table")
	verbose := flag.Bool("v", false, "log SQL statements")
	flag.Parse()
	if flag.NArg() != 0 {
		return fmt.Errorf("unexpected arguments: %v", flag.Args())
	}

	ll := &slog.LevelVar{}
	ll.Set(slog.LevelWarn)
	if *verbose {
		ll.Set(slog.LevelDebug)
	}
	slog.SetDefault(slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})))

	// Temporary tables are private to the connection that created them.
	if *temporary && os.Getenv("JSONFIELD_DATABASE_MAX_OPEN_CONNS") == "" {
		os.Setenv("JSONFIELD_DATABASE_MAX_OPEN_CONNS", "1")
	}
	client, err := jsonfield.OpenFile(*configFile)
	if err != nil {
		return err
	}
	defer client.Close()

	opt := jsonfield.WithCreateTable()
	if *temporary {
		opt = jsonfield.WithTemporaryTable()
	}
	fmt.Printf("Connecting to %s db and creating table\n", client.Dialect())
	field, err := client.Field(ctx, "test_table", "data", opt)
	if err != nil {
		return err
	}
	return play(ctx, field)
}

func play(ctx context.Context, field *jsonfield.Field) error {
	payload := map[string]any{
		"v_int":  10,
		"v_str":  "my_body_string",
		"v_bool": true,
		"v_dict": map[string]any{
			"v_in_dict": 20,
			"v_in_dict_dict": map[string]any{
				"new_variable": 200,
			},
		},
		"v_list": []any{"my_list_string1", "my_list_string2", "my_list_string3"},
	}

	fmt.Println("Inserting payload1 with ID = 1")
	if _, err := field.InsertKey(ctx, 1, payload); err != nil {
		return err
	}
	payload2 := make(map[string]any, len(payload))
	for k, v := range payload {
		payload2[k] = v
	}
	payload2["v_int"] = 20
	fmt.Println("Inserting payload2 (v_int=20) with ID = 2")
	if _, err := field.InsertKey(ctx, 2, payload2); err != nil {
		return err
	}

	fmt.Println("Reading saved payload from ID = 1:")
	saved, err := field.Get(ctx, field.Key(1))
	if err != nil {
		return err
	}
	if err := show(saved); err != nil {
		return err
	}

	fmt.Println("Adding fields to the saved row")
	sets := []struct {
		expr  string
		value any
	}{
		{"$.add_v_int", 100},
		{"$.add_v_str", "my_new_string"},
		{"$.add_v_bool", false},
		{"$.add_v_list", []any{1, 2, 3}},
		{"$.add_v_dict", map[string]any{"added": "dict"}},
		{"$.v_dict.add_nested_v_dict", map[string]any{"added_nested": "nested", "added_nested1": "remove_me"}},
	}
	for _, s := range sets {
		if err := saved.Set(ctx, s.expr, s.value); err != nil {
			return err
		}
	}

	fmt.Println("Refreshing saved row:")
	if err := saved.Reload(ctx); err != nil {
		return err
	}
	if err := show(saved); err != nil {
		return err
	}

	fmt.Println("Removing old fields from the saved row")
	for _, expr := range []string{
		"$.v_str",
		"$.v_bool",
		"$.v_dict.v_in_dict",
		"$.v_dict.v_in_dict_dict",
		"$.v_dict.add_nested_v_dict.added_nested1",
		"$.v_list",
	} {
		if err := saved.Remove(ctx, expr); err != nil {
			return err
		}
	}

	fmt.Println("Refreshing saved row:")
	if err := saved.Reload(ctx); err != nil {
		return err
	}
	if err := show(saved); err != nil {
		return err
	}

	for _, q := range []struct {
		expr  string
		value any
	}{
		{"$.v_int", 10},
		{"$.v_int", 20},
		{"$.add_v_str", "my_new_string"},
	} {
		row, err := field.Get(ctx, field.Extract(q.expr).Eq(q.value))
		switch {
		case errors.Is(err, jsonfield.ErrNotFound):
			fmt.Printf("Select by %s = %v: none\n", q.expr, q.value)
		case err != nil:
			return err
		default:
			fmt.Printf("Select by %s = %v: ID %v\n", q.expr, q.value, row.Key)
		}
	}

	fmt.Println("Running table statements")
	statements := []struct {
		expr  string
		where []jsonfield.Condition
	}{
		{"$.add_v_str", []jsonfield.Condition{field.Extract("$.add_v_str").Eq("my_new_string")}},
		{"$.v_bool", []jsonfield.Condition{field.Key(2)}},
		{"$.v_dict", nil},
		{"$.v_int", nil},
	}
	for _, s := range statements {
		stmt, err := field.Remove(s.expr)
		if err != nil {
			return err
		}
		n, err := stmt.Where(s.where...).Execute(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("  %s: %d rows\n", stmt, n)
	}
	fmt.Println()

	for _, key := range []int{1, 2} {
		fmt.Printf("Result data from row ID = %d:\n", key)
		row, err := field.Load(ctx, key)
		if err != nil {
			return err
		}
		if err := show(row); err != nil {
			return err
		}
	}
	return nil
}

func show(row *jsonfield.Row) error {
	out, err := json.MarshalIndent(row.Data, "", "    ")
	if err != nil {
		return err
	}
	fmt.Printf("%s\n\n", out)
	return nil
}
