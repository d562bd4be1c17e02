// Package txlog reads an ordered transaction log from a YAML file. It lets
// the daemon replay scripted scenarios without a chain.
package txlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"gfvledger/internal/ledger"
	"gfvledger/internal/sequencer"
)

// Log is the file layout. Accounts maps aliases to addresses; any caller or
// argument equal to an alias is replaced by its address.
type Log struct {
	Genesis  time.Time         `yaml:"genesis"`
	Accounts map[string]string `yaml:"accounts"`
	Entries  []Entry           `yaml:"transactions"`
}

// Entry is one call. Time pins the block time; Advance moves it forward
// from the previous entry instead. With neither, the ledger clock stays put.
type Entry struct {
	Caller   string            `yaml:"caller"`
	Time     time.Time         `yaml:"time"`
	Advance  string            `yaml:"advance"`
	Contract string            `yaml:"contract"`
	Method   string            `yaml:"method"`
	Args     map[string]string `yaml:"args"`
}

func Parse(data []byte) (*Log, error) {
	var log Log
	if err := yaml.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("parse transaction log: %w", err)
	}

	return &log, nil
}

func Load(path string) (*Log, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transaction log: %w", err)
	}

	return Parse(data)
}

// Transactions resolves aliases and times. The logical time of an entry is
// its 1-based position in the file.
func (l *Log) Transactions() ([]sequencer.Transaction, error) {
	transactions := make([]sequencer.Transaction, 0, len(l.Entries))
	now := l.Genesis

	for i, entry := range l.Entries {
		lt := uint64(i + 1)

		caller, err := ledger.ParseAddress(l.resolve(entry.Caller))
		if err != nil {
			return nil, fmt.Errorf("transaction %d: caller: %w", lt, err)
		}

		var at time.Time
		switch {
		case !entry.Time.IsZero():
			at = entry.Time.UTC()
		case entry.Advance != "":
			d, err := time.ParseDuration(entry.Advance)
			if err != nil {
				return nil, fmt.Errorf("transaction %d: advance: %w", lt, err)
			}
			at = now.Add(d)
		}

		if !at.IsZero() {
			now = at
		}

		args := make(sequencer.Args, len(entry.Args))
		for key, value := range entry.Args {
			args[key] = l.resolve(value)
		}

		transactions = append(transactions, sequencer.Transaction{
			Lt:       lt,
			Time:     at,
			Caller:   caller,
			Contract: entry.Contract,
			Method:   entry.Method,
			Args:     args,
		})
	}

	return transactions, nil
}

func (l *Log) resolve(value string) string {
	if address, ok := l.Accounts[value]; ok {
		return address
	}

	return value
}

// FileSource re-reads the log on every fetch so entries appended while the
// daemon runs are picked up.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string {
	return "file:" + filepath.Base(s.path)
}

func (s *FileSource) Fetch(ctx context.Context, afterLt uint64) ([]sequencer.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log, err := Load(s.path)
	if err != nil {
		return nil, err
	}

	transactions, err := log.Transactions()
	if err != nil {
		return nil, err
	}

	if afterLt >= uint64(len(transactions)) {
		return nil, nil
	}

	return transactions[afterLt:], nil
}
