package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/sirupsen/logrus"

	"github.com/cvconnect/interviewsync/internal/api"
	"github.com/cvconnect/interviewsync/internal/app"
	"github.com/cvconnect/interviewsync/internal/channel"
	"github.com/cvconnect/interviewsync/internal/credential"
	"github.com/cvconnect/interviewsync/internal/model"
	"github.com/cvconnect/interviewsync/internal/notify"
	"github.com/cvconnect/interviewsync/internal/store"
	"github.com/cvconnect/interviewsync/internal/store/archive"
	appsync "github.com/cvconnect/interviewsync/internal/sync"
)

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to config file")
	reconfigure := flag.Bool("configure", false, "run the setup form even if configured")
	flag.Parse()

	if err := run(*configPath, *reconfigure); err != nil {
		fmt.Fprintf(os.Stderr, "interviewsync: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, reconfigure bool) error {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}

	if reconfigure || cfg.Server.BaseURL == "" || cfg.Server.UserID == "" {
		if err := configure(configPath, cfg); err != nil {
			return err
		}
	}

	token, err := credential.Get(credential.TokenKey)
	if err != nil {
		return fmt.Errorf("loading API token (run with -configure): %w", err)
	}

	log, err := openLogger(configPath)
	if err != nil {
		return err
	}

	client := api.NewClient(cfg.Server.BaseURL, token)
	interviews := store.NewInterviewStore(log)

	var hist *archive.Archive
	var conflicts appsync.ConflictLog
	aggOpts := []notify.Option{notify.WithCap(cfg.Notify.WorkingSetCap)}
	hist, err = archive.Open(cfg.Notify.ArchivePath)
	if err != nil {
		// The archive is a convenience; the live sync state does not
		// depend on it.
		log.WithError(err).Warn("notification archive unavailable")
	} else {
		defer hist.Close()
		conflicts = hist
		aggOpts = append(aggOpts, notify.WithEvictFunc(func(evicted []model.Notification) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := hist.AppendNotifications(ctx, evicted); err != nil {
				log.WithError(err).Warn("archiving evicted notifications failed")
			}
		}))
	}

	notifications := notify.NewAggregator(log, aggOpts...)

	ch := channel.New(
		channel.Dial(cfg.Server.SocketURL),
		log,
		channel.WithMaxReconnectAttempts(cfg.Sync.MaxReconnectAttempts),
	)

	engine := appsync.NewEngine(client, interviews, notifications, ch, conflicts, appsync.Config{
		Room:             "user:" + cfg.Server.UserID,
		InterviewPoll:    time.Duration(cfg.Sync.InterviewPollSec) * time.Second,
		NotificationPoll: time.Duration(cfg.Sync.NotificationPollSec) * time.Second,
		SubmitTimeout:    time.Duration(cfg.Sync.FetchTimeoutSec) * time.Second,
	}, log)

	p := tea.NewProgram(app.New(engine), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running dashboard: %w", err)
	}
	return nil
}

// configure runs the first-run setup form, writing the endpoints to the
// config file and the token to the system keyring.
func configure(configPath string, cfg *model.AppConfig) error {
	var token string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API base URL").
				Placeholder("https://api.cvconnect.example.com").
				Value(&cfg.Server.BaseURL),
			huh.NewInput().
				Title("Websocket URL").
				Placeholder("wss://ws.cvconnect.example.com/socket").
				Value(&cfg.Server.SocketURL),
			huh.NewInput().
				Title("User ID").
				Value(&cfg.Server.UserID),
			huh.NewInput().
				Title("Access token").
				EchoMode(huh.EchoModePassword).
				Value(&token),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("running setup form: %w", err)
	}

	if err := model.SaveConfig(configPath, cfg); err != nil {
		return err
	}
	if token != "" {
		if err := credential.Set(credential.TokenKey, token); err != nil {
			return err
		}
	}
	return nil
}

// openLogger writes structured logs next to the config file; stdout belongs
// to the dashboard.
func openLogger(configPath string) (*logrus.Logger, error) {
	logPath := filepath.Join(filepath.Dir(configPath), "interviewsync.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", logPath, err)
	}

	log := logrus.New()
	log.SetOutput(f)
	log.SetFormatter(&logrus.JSONFormatter{})
	return log, nil
}
