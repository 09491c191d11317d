package main

import (
	"net/http"

	"go.uber.org/zap"

	"notesapp/internal/api"
	"notesapp/internal/config"
	"notesapp/internal/mail"
	"notesapp/internal/middleware"
	"notesapp/internal/store/sqlstore"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("loading configuration", zap.Error(err))
	}

	st, err := sqlstore.New(cfg.DBDriver, cfg.DBConn)
	if err != nil {
		logger.Fatal("initializing database", zap.Error(err))
	}
	defer st.Close()

	var mailer mail.Mailer = &mail.LogMailer{From: cfg.MailFrom, Log: logger}
	if cfg.SMTPHost != "" {
		mailer = &mail.SMTPMailer{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		}
	}

	handlers, err := api.New(st, cfg, logger, mailer)
	if err != nil {
		logger.Fatal("initializing handlers", zap.Error(err))
	}

	handler := middleware.Logging(logger)(handlers.Routes())

	logger.Info("server started", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
