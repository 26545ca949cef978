// Command relaynode runs a single object-relay peer: the listener(s),
// outgoing dialer/manager, advertiser, and (optionally) the I2P
// transport, admin HTTP surface and interactive console. Flag/command
// wiring is grounded on the teacher's cli/app.New + cli/server.NewCommands
// pattern, adapted to the urfave/cli v1 API this module's go.mod pins.
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/bmrelay/relaynode/internal/nodelog"
	"github.com/bmrelay/relaynode/pkg/addrpool"
	"github.com/bmrelay/relaynode/pkg/admin"
	"github.com/bmrelay/relaynode/pkg/advertiser"
	relaynodecfg "github.com/bmrelay/relaynode/pkg/config"
	"github.com/bmrelay/relaynode/pkg/console"
	"github.com/bmrelay/relaynode/pkg/i2p"
	"github.com/bmrelay/relaynode/pkg/netsvc"
	"github.com/bmrelay/relaynode/pkg/node"
	"github.com/bmrelay/relaynode/pkg/objstore"
	"github.com/bmrelay/relaynode/pkg/pow"
	"github.com/bmrelay/relaynode/pkg/relaymgr"
)

// Version is set at build time via -ldflags.
var Version string

func main() {
	relaynodecfg.Version = Version
	app := cli.NewApp()
	app.Name = "relaynode"
	app.Usage = "Bitmessage-style object-relay peer"
	app.Version = Version
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Usage: "path to relaynode.yml"},
		cli.StringFlag{Name: "host", Usage: "listen host"},
		cli.IntFlag{Name: "port, p", Usage: "listen port"},
		cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
		cli.StringFlag{Name: "data-dir", Usage: "snapshot/persistence directory"},
		cli.BoolFlag{Name: "no-incoming", Usage: "disable inbound connections"},
		cli.BoolFlag{Name: "no-outgoing", Usage: "disable outbound dialing"},
		cli.BoolFlag{Name: "no-ip", Usage: "disable the plain-IP transport"},
		cli.StringFlag{Name: "trusted-peer", Usage: "dial only this host:port (or .b32.i2p destination)"},
		cli.IntFlag{Name: "connection-limit", Usage: "maximum total connections"},
		cli.BoolFlag{Name: "i2p", Usage: "enable the I2P transport via a local SAMv3 bridge"},
		cli.IntFlag{Name: "i2p-tunnel-length", Usage: "I2P tunnel hop count"},
		cli.StringFlag{Name: "i2p-sam-host", Usage: "I2P SAMv3 bridge host"},
		cli.IntFlag{Name: "i2p-sam-port", Usage: "I2P SAMv3 bridge port"},
		cli.BoolFlag{Name: "i2p-transient", Usage: "never persist or republish the I2P destination"},
		cli.StringFlag{Name: "admin-addr", Usage: "bind address for the admin HTTP/WS surface (empty disables it)"},
		cli.BoolFlag{Name: "console", Usage: "start an interactive console instead of running headless"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "relaynode:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := relaynodecfg.Load(c.String("config"))
	if err != nil {
		return err
	}
	applyFlagOverrides(c, &cfg)
	if c.Bool("debug") {
		cfg.Logger.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	zlog, err := nodelog.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer zlog.Sync() //nolint:errcheck
	log := zlog.Sugar()

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return fmt.Errorf("relaynode: create data dir: %w", err)
	}

	store := objstore.New()
	objectsPath := filepath.Join(cfg.Storage.DataDir, "objects.db")
	if err := store.LoadSnapshot(objectsPath); err != nil {
		log.Warnw("relaynode: object snapshot load failed, starting empty", "error", err)
	}

	pools := addrpool.New()
	poolsDir := filepath.Join(cfg.Storage.DataDir, "pools")
	if err := os.MkdirAll(poolsDir, 0o755); err != nil {
		return fmt.Errorf("relaynode: create pools dir: %w", err)
	}
	if err := pools.LoadSnapshot(poolsDir); err != nil {
		log.Warnw("relaynode: pool snapshot load failed, starting empty", "error", err)
	}
	if err := relaynodecfg.LoadSeeds(pools, cfg.P2P.CoreNodesFile); err != nil {
		log.Warnw("relaynode: core-node seed load failed", "error", err)
	}

	nonce, err := randomNonce()
	if err != nil {
		return err
	}

	ncfg := node.Config{
		ListenHost:      cfg.P2P.ListenHost,
		ListenPort:      cfg.P2P.ListenPort,
		UserAgent:       cfg.GenerateUserAgent(),
		ConnectionLimit: cfg.P2P.ConnectionLimit,
		NoIncoming:      cfg.P2P.NoIncoming,
		NoOutgoing:      cfg.P2P.NoOutgoing,
		NoIP:            cfg.P2P.NoIP,
		OutgoingTarget:  cfg.P2P.OutgoingTarget,
		DataDir:         cfg.Storage.DataDir,
		I2PEnabled:      cfg.I2P.Enabled,
		I2PTransient:    cfg.I2P.Transient,
	}
	if cfg.P2P.TrustedPeer != "" {
		addr, err := parseTrustedPeer(cfg.P2P.TrustedPeer, cfg.P2P.ListenPort)
		if err != nil {
			return err
		}
		ncfg.TrustedPeer = &addr
	}

	n := node.New(ncfg, store, pools, log, nonce)

	ctx, cancel := context.WithCancel(context.Background())
	installSignalHandler(n, cancel, log)

	var i2pClient *i2p.Client
	if cfg.I2P.Enabled {
		i2pClient = i2p.NewClient(i2p.Options{
			SAMHost:      cfg.I2P.SAMHost,
			SAMPort:      cfg.I2P.SAMPort,
			TunnelLength: cfg.I2P.TunnelLength,
			Logger:       log.Named("i2p"),
		})
		destPath := filepath.Join(cfg.Storage.DataDir, "destination.key")
		priv, err := i2p.LoadOrGenerateDestination(destPath, cfg.I2P.Transient)
		if err != nil {
			return err
		}
		sess, _, err := i2pClient.CreateSession(priv)
		if err != nil {
			return fmt.Errorf("relaynode: i2p session: %w", err)
		}
		go i2p.KeepAlive(sess, log.Named("i2p"))
		if !cfg.I2P.Transient {
			if err := i2p.SaveDestination(destPath, i2pClient.DestinationPriv()); err != nil {
				log.Warnw("relaynode: failed to persist i2p destination", "error", err)
			}
		}
		log.Infow("relaynode: i2p destination ready", "address", i2pClient.B32Address())
	}

	publisher := pow.NewPublisher(store, n.Advertise.EnqueueVector, log.Named("pow"))

	mgr := relaymgr.New(relaymgr.Options{
		Node:                n,
		I2PClient:           i2pClient,
		Publisher:           publisher,
		ObjectsSnapshotPath: objectsPath,
		PoolsSnapshotDir:    poolsDir,
	})
	adv := advertiser.New(n)

	relaymgr.Bootstrap(ctx, n, defaultDNSSeeds, cfg.P2P.IPSeedFile, cfg.I2P.SeedFile)

	if !cfg.P2P.NoIncoming && !cfg.P2P.NoIP {
		ln, err := netsvc.Listen(n, cfg.P2P.ListenHost, cfg.P2P.ListenPort)
		if err != nil {
			return fmt.Errorf("relaynode: listen: %w", err)
		}
		go ln.Serve(ctx)
	}
	if !cfg.P2P.NoIncoming && cfg.I2P.Enabled {
		i2pLn := netsvc.NewI2PListener(n, i2pClient)
		go i2pLn.Serve(ctx)
	}

	go mgr.Run(ctx)
	go adv.Run(ctx)

	if addr := c.String("admin-addr"); addr != "" {
		adminSrv := admin.New(n, addr)
		go func() {
			lnAdmin, err := netLocalListen(addr)
			if err != nil {
				log.Warnw("relaynode: admin listener failed", "error", err)
				return
			}
			if err := adminSrv.Serve(ctx, lnAdmin); err != nil {
				log.Warnw("relaynode: admin server stopped", "error", err)
			}
		}()
	}

	if c.Bool("console") {
		repl, err := console.New(n, publisher)
		if err != nil {
			return err
		}
		return repl.Run()
	}

	<-ctx.Done()
	return nil
}

// defaultDNSSeeds is the bootstrap hostname list consulted when no
// trusted peer is configured, per §14.
var defaultDNSSeeds = []string{
	"bootstrap8444.bitmessage.org",
	"bootstrap8080.bitmessage.org",
}

func applyFlagOverrides(c *cli.Context, cfg *relaynodecfg.Config) {
	if v := c.String("host"); v != "" {
		cfg.P2P.ListenHost = v
	}
	if v := c.Int("port"); v != 0 {
		cfg.P2P.ListenPort = uint16(v)
	}
	if v := c.String("data-dir"); v != "" {
		cfg.Storage.DataDir = v
	}
	if c.Bool("no-incoming") {
		cfg.P2P.NoIncoming = true
	}
	if c.Bool("no-outgoing") {
		cfg.P2P.NoOutgoing = true
	}
	if c.Bool("no-ip") {
		cfg.P2P.NoIP = true
	}
	if v := c.String("trusted-peer"); v != "" {
		cfg.P2P.TrustedPeer = v
	}
	if v := c.Int("connection-limit"); v != 0 {
		cfg.P2P.ConnectionLimit = v
	}
	if c.Bool("i2p") {
		cfg.I2P.Enabled = true
	}
	if v := c.Int("i2p-tunnel-length"); v != 0 {
		cfg.I2P.TunnelLength = v
	}
	if v := c.String("i2p-sam-host"); v != "" {
		cfg.I2P.SAMHost = v
	}
	if v := c.Int("i2p-sam-port"); v != 0 {
		cfg.I2P.SAMPort = uint16(v)
	}
	if c.Bool("i2p-transient") {
		cfg.I2P.Transient = true
	}
}

// installSignalHandler flips the node's shared shutdown flag and cancels
// ctx on SIGINT/SIGTERM, per §14's graceful-shutdown supplement.
func installSignalHandler(n *node.Node, cancel context.CancelFunc, log *zap.SugaredLogger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Infow("relaynode: shutting down", "signal", sig)
		n.Shutdown()
		cancel()
	}()
}

func randomNonce() ([8]byte, error) {
	var n [8]byte
	_, err := rand.Read(n[:])
	return n, err
}
