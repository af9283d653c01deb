package main

import (
	"context"
	"flag"
	"os"

	log "github.com/sirupsen/logrus"

	"loopLife/crud"
	"loopLife/http"
	"loopLife/jobs"
	"loopLife/mail"
)

// main is the app's entry point.
func main() {
	// Check if the flag "-prod" has been provided. It means that we're
	// running in production, in which case a .config.json file is required
	// and the app will panic if no file is found.
	productionBool := flag.Bool("prod", false, "Provide this flag in production to ensure that a .config.json file is provided before the application starts.")
	flag.Parse()

	setupLogging()
	config := LoadConfig(*productionBool)
	if level, err := log.ParseLevel(config.LogLevel); err == nil {
		log.SetLevel(level)
	}

	// Open a database connection and execute migrations.
	db := NewDB(config.Database.ConnectionInfo())
	err := Open(db, config.IsProd())
	must(err)
	defer Close(db)
	err = AutoMigrate(db)
	must(err)

	// Start the crud services.
	services, err := crud.NewServices(
		db.Gorm,
		crud.WithUser(config.Pepper, config.HMACKey),
		crud.WithLoop(),
		crud.WithComment(),
		crud.WithLike(),
	)
	must(err)

	// Pick the mail delivery: Resend with credentials, the log without.
	var mailer mail.Mailer = &mail.LogMailer{}
	if config.Mail.ResendAPIKey != "" {
		mailer = mail.NewResendMailer(config.Mail.ResendAPIKey, config.Mail.From)
	}

	// Start the background jobs.
	scheduler := jobs.NewScheduler(services.Loop)
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	// Set up a webserver and serve the app.
	server := http.NewServer(config.IsProd(), config.CSRFKey, services, mailer)
	server.Run(config.Port)
}

// setupLogging configures the log format.
func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
}

// must is a little helper for shortening the panic instruction.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
