package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Caizin-Private/QuestEvent/internal/authz"
	"github.com/Caizin-Private/QuestEvent/internal/httpapi"
	"github.com/Caizin-Private/QuestEvent/internal/obs"
	"github.com/Caizin-Private/QuestEvent/internal/program"
	"github.com/Caizin-Private/QuestEvent/internal/registration"
	"github.com/Caizin-Private/QuestEvent/internal/store/pg"
	"github.com/Caizin-Private/QuestEvent/internal/stream"
	"github.com/Caizin-Private/QuestEvent/internal/submission"
	"github.com/Caizin-Private/QuestEvent/internal/user"
	"github.com/Caizin-Private/QuestEvent/internal/wallet"
	"github.com/Caizin-Private/QuestEvent/internal/workflow"
)

// Overridden at build time via -ldflags.
var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	// Observability first: metric registration and the JSON logger.
	obs.Init()
	obs.InitBuildInfo(version, commit)

	var (
		programStore program.Store
		regStore     registration.Store
		subStore     submission.Store
		userStore    user.Store
		wallets      wallet.Ledger
		progWallets  wallet.ProgramLedger
		facts        authz.FactProvider
		ready        httpapi.ReadyProbe
	)

	if dsn := os.Getenv("QUESTEVENT_PG_DSN"); dsn != "" {
		store, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer store.Close()
		programStore = store.Programs()
		regStore = store.Registrations()
		subStore = store.Submissions()
		userStore = store.Users()
		wallets = store.Wallets()
		progWallets = store.ProgramWallets()
		facts = store.Facts()
		ready = httpapi.ReadyProbe{DB: store.DB()}
	} else {
		// In-memory mode for development and tests; state does not survive
		// a restart.
		mPrograms := program.NewInMemory()
		mRegs := registration.NewInMemory()
		mSubs := submission.NewInMemory()
		mUsers := user.NewInMemory()
		mWallets := wallet.NewInMemory()
		programStore = mPrograms
		regStore = mRegs
		subStore = mSubs
		userStore = mUsers
		wallets = mWallets
		progWallets = wallet.NewInMemoryProgram()
		facts = &authz.StoreProvider{
			Programs:      mPrograms,
			Registrations: mRegs,
			Submissions:   mSubs,
			Users:         mUsers,
			Wallets:       mWallets,
		}
	}

	guard := workflow.NewGuard(regStore, subStore)
	programs := program.NewService(programStore, guard, regStore)
	regs := registration.NewService(regStore, guard)
	subs := submission.NewService(subStore, guard, programs, wallets)
	users := user.NewService(userStore, guard, wallets)

	api := httpapi.New(httpapi.Deps{
		Authz:          authz.NewAuthorizer(facts),
		Programs:       programs,
		Registrations:  regs,
		Submissions:    subs,
		Users:          users,
		Wallets:        wallets,
		ProgramWallets: progWallets,
		Stream:         stream.New(),
		Ready:          ready,
		Version:        version,
		RateBurst:      envInt("QUESTEVENT_RATE_BURST", 50),
		RatePerSecond:  envInt("QUESTEVENT_RATE_PER_SECOND", 25),
	})

	addr := os.Getenv("QUESTEVENT_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting questevent-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		log.Fatalf("invalid %s: %q", key, raw)
	}
	return val
}
