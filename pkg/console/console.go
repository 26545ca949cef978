// Package console implements the optional interactive REPL (`relaynode
// console`): `peers`, `stats`, `objects`, `publish`. It is grounded on
// the teacher's cli/vm.CLI readline loop (NewEx, PrefixCompleter,
// io.EOF/readline.ErrInterrupt as the two non-error exit conditions),
// trimmed of the urfave/cli-per-line dispatch the VM CLI uses in favor
// of a small builtin command table since this REPL has four commands,
// not a VM's dozens.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/bmrelay/relaynode/pkg/node"
	"github.com/bmrelay/relaynode/pkg/object"
	"github.com/bmrelay/relaynode/pkg/pow"
)

var completer = readline.NewPrefixCompleter(
	readline.PcItem("peers"),
	readline.PcItem("stats"),
	readline.PcItem("objects"),
	readline.PcItem("publish"),
	readline.PcItem("exit"),
)

// Console is the interactive REPL bound to a running node.
type Console struct {
	n         *node.Node
	publisher *pow.Publisher
	l         *readline.Instance
}

// New builds a Console. publisher may be nil, in which case `publish`
// reports that publishing is unavailable (no PoW worker configured).
func New(n *node.Node, publisher *pow.Publisher) (*Console, error) {
	l, err := readline.NewEx(&readline.Config{
		Prompt:       "relaynode> ",
		AutoComplete: completer,
	})
	if err != nil {
		return nil, fmt.Errorf("console: %w", err)
	}
	return &Console{n: n, publisher: publisher, l: l}, nil
}

// Run blocks reading and dispatching commands until the user exits or
// the input stream closes.
func (c *Console) Run() error {
	defer c.l.Close()
	for {
		line, err := c.l.Readline()
		if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("console: %w", err)
		}

		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if err := c.dispatch(args[0], args[1:]); err != nil {
			fmt.Fprintln(c.l.Stderr(), "error:", err)
		}
	}
}

func (c *Console) dispatch(cmd string, args []string) error {
	switch cmd {
	case "peers":
		return c.cmdPeers()
	case "stats":
		return c.cmdStats()
	case "objects":
		return c.cmdObjects()
	case "publish":
		return c.cmdPublish(args)
	case "exit", "quit":
		return io.EOF
	default:
		return fmt.Errorf("unknown command %q (try peers, stats, objects, publish, exit)", cmd)
	}
}

func (c *Console) cmdPeers() error {
	w := c.l.Stdout()
	for _, conn := range c.n.Connections.Snapshot() {
		fmt.Fprintf(w, "%-40s %-5s %-10s inbound=%v services=%d\n",
			conn.ID(), conn.Network(), conn.Status(), conn.Inbound(), conn.Services())
	}
	return nil
}

func (c *Console) cmdStats() error {
	w := c.l.Stdout()
	fmt.Fprintf(w, "connections:        %d\n", len(c.n.Connections.Snapshot()))
	fmt.Fprintf(w, "objects:            %d\n", c.n.Store.Len())
	fmt.Fprintf(w, "known ip peers:     %d\n", len(c.n.Pools.KnownIP()))
	fmt.Fprintf(w, "unchecked ip peers: %d\n", len(c.n.Pools.UncheckedIP()))
	return nil
}

func (c *Console) cmdObjects() error {
	w := c.l.Stdout()
	for v, o := range c.n.Store.Snapshot() {
		fmt.Fprintf(w, "%x type=%d version=%d expires=%s\n", v, o.ObjectType, o.Version, time.Unix(int64(o.ExpiresTime), 0).UTC())
	}
	return nil
}

// cmdPublish mines and stores a custom object: `publish <type> <ttl-seconds> <payload>`.
func (c *Console) cmdPublish(args []string) error {
	if c.publisher == nil {
		return errors.New("no PoW worker configured")
	}
	if len(args) < 3 {
		return errors.New("usage: publish <type> <ttl-seconds> <payload>")
	}
	objType, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("bad object type: %w", err)
	}
	ttl, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("bad ttl: %w", err)
	}
	payload := strings.Join(args[2:], " ")

	draft := &object.Object{
		ExpiresTime:  uint64(time.Now().Unix()) + ttl,
		ObjectType:   uint32(objType),
		Version:      1,
		StreamNumber: object.Stream,
		Payload:      []byte(payload),
	}
	v, err := c.publisher.PublishAndWait(context.Background(), draft)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.l.Stdout(), "published %x\n", v)
	return nil
}
