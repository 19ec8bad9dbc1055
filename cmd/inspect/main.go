// Command inspect prints the participants and messages held in a relay
// Badger directory. The database is opened read-only, so it can run next to
// a live relay.
package main

import (
	"chat-relay/repositories"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/pflag"
	"go.mongodb.org/mongo-driver/bson"
)

func main() {
	dbPath := pflag.StringP("db", "d", "./data/badger", "Path to badger DB")
	what := pflag.StringP("show", "s", "all", "What to print: participants, messages or all")
	timeout := pflag.Duration("timeout", 10*time.Second, "Inactivity window used to flag stale participants")
	pflag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	switch *what {
	case "participants":
		err = printParticipants(db, *timeout)
	case "messages":
		err = printMessages(db)
	case "all":
		if err = printParticipants(db, *timeout); err == nil {
			err = printMessages(db)
		}
	default:
		err = fmt.Errorf("unknown --show value %q", *what)
	}
	if err != nil {
		color.Red.Println(err)
		os.Exit(1)
	}
}

func newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func printParticipants(db *badger.DB, timeout time.Duration) error {
	table := newTable("Name", "Last status", "Idle", "State")
	cutoff := time.Now().Add(-timeout)

	err := scanPrefix(db, "participant:", func(key string, v []byte) {
		var doc repositories.ParticipantDocument
		if err := bson.Unmarshal(v, &doc); err != nil {
			color.Yellow.Printf("Skipping %s: %v\n", key, err)
			return
		}
		p := doc.ToParticipant()
		state := color.Green.Sprint("active")
		if p.IsStale(cutoff) {
			state = color.Red.Sprint("stale")
		}
		table.Append([]string{
			p.Name,
			p.LastSeen.Local().Format(time.DateTime),
			time.Since(p.LastSeen).Truncate(time.Second).String(),
			state,
		})
	})
	if err != nil {
		return err
	}

	color.Cyan.Printf("Participants (%d)\n", table.NumLines())
	table.Render()
	fmt.Println()
	return nil
}

func printMessages(db *badger.DB) error {
	table := newTable("Seq", "Time", "Type", "From", "To", "Text")

	err := scanPrefix(db, "msg:", func(key string, v []byte) {
		var doc repositories.MessageDocument
		if err := bson.Unmarshal(v, &doc); err != nil {
			color.Yellow.Printf("Skipping %s: %v\n", key, err)
			return
		}
		table.Append([]string{
			fmt.Sprint(doc.Seq),
			doc.Time.Local().Format(time.TimeOnly),
			doc.Type,
			doc.From,
			doc.To,
			truncate(doc.Text, 60),
		})
	})
	if err != nil {
		return err
	}

	color.Cyan.Printf("Messages (%d)\n", table.NumLines())
	table.Render()
	return nil
}

func scanPrefix(db *badger.DB, prefix string, fn func(key string, v []byte)) error {
	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			if err := item.Value(func(v []byte) error {
				fn(key, v)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
