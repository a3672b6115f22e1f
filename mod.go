package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/nkcr/igfeed/aggregator"
	"github.com/nkcr/igfeed/httpapi"
	"github.com/nkcr/igfeed/instagram"
	"github.com/nkcr/igfeed/instagram/compat"
	"github.com/nkcr/igfeed/instagram/types"
	"github.com/rs/zerolog"
	"github.com/tidwall/buntdb"
)

// Version contains the current or build version. This variable can be changed
// at build time with:
//
//   go build -ldflags="-X 'main.Version=v1.0.0'"
//
// Version should be fetched from git: `git describe --tags`
var Version = "unknown"

// BuildTime indicates the time at which the binary has been built. Must be set
// as with Version.
var BuildTime = "unknown"

const cookieKey = "INSTAGRAM_COOKIE"
const sigKeyKey = "INSTAGRAM_SIG_KEY"

var logout = zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.RFC3339,
}

// args defines the CLI arguments. You can always use -h to see the help.
type args struct {
	Interval     time.Duration `short:"i" long:"interval" default:"1h" description:"Refresh interval used by the Aggregator."`
	Feed         string        `short:"f" long:"feed" default:"timeline" description:"Feed to archive: liked, timeline, popular, self, saved, reels_tray, or user:<id>, username:<name>, reel:<id>, story:<id>, tag:<tag>, location:<id>."`
	UserID       string        `short:"u" long:"userid" required:"true" description:"ID of the authenticated user."`
	CSRFToken    string        `short:"c" long:"csrftoken" description:"CSRF token of the session."`
	UUID         string        `long:"uuid" description:"Device UUID. Generated if empty."`
	PhoneID      string        `long:"phoneid" description:"Phone ID. Generated if empty."`
	UserAgent    string        `long:"useragent" default:"Instagram 10.26.0 Android (18/4.3; 320dpi; 720x1280; Xiaomi; HM 1SW; armani; qcom; en_US)" description:"User agent sent to the API."`
	BaseURL      string        `long:"baseurl" default:"https://i.instagram.com/api/v1/" description:"Root URL of the API."`
	NoPatch      bool          `long:"nopatch" description:"Archive media as returned by the API, without the compatibility patch."`
	DropIncompat bool          `long:"dropincompat" description:"Drop the media keys that are not part of the compatible field set."`
	DBFilePath   string        `short:"d" long:"dbfilepath" default:"igfeed.db" description:"File path of the database."`
	ImagesFolder string        `short:"j" long:"imagesfolder" description:"Folder used to saved images. By default it uses $HOME/.igfeed/images."`
	HTTPListen   string        `short:"l" long:"listen" default:"0.0.0.0:3333" description:"The listen address of the HTTP server that servers the API."`
	Verbose      bool          `long:"verbose" description:"Logs API calls."`
	Version      bool          `short:"v" long:"version" description:"Displays the version."`
}

func main() {
	var args args
	parser := flags.NewParser(&args, flags.Default)

	remaining, err := parser.Parse()
	if err != nil {
		flagsErr, ok := err.(*flags.Error)
		if ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}

		fmt.Println("failed to parse arguments:", err.Error())
		os.Exit(1)
	}

	if len(remaining) != 0 {
		fmt.Printf("unknown flags: %v\n", remaining)
		os.Exit(1)
	}

	if args.Version {
		fmt.Println("igfeed", Version, "-", BuildTime)
		os.Exit(0)
	}

	// set the default value for the imagesFolder argument
	if args.ImagesFolder == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			panic(fmt.Sprintf("failed to get home dir: %v", err))
		}

		imagesFolder := filepath.Join(homeDir, ".igfeed", "images")
		args.ImagesFolder = imagesFolder
	}

	source, err := aggregator.ParseSource(args.Feed)
	if err != nil {
		fmt.Println("failed to parse feed:", err.Error())
		os.Exit(1)
	}

	level := zerolog.InfoLevel
	if args.Verbose {
		level = zerolog.DebugLevel
	}

	var logger = zerolog.New(logout).Level(level).
		With().Timestamp().Logger().
		With().Caller().Logger()

	logger.Info().Msgf("hi,\n"+
		"┌───────────────────────────────────────────────┐\n"+
		"│    ** Instagram Feed Archiver **\t\t│\n"+
		"├───────────────────────────────────────────────┤\n"+
		"│ Version %s │ Build time %s\t│\n"+
		"├───────────────────────────────────────────────┤\n"+
		"│ Feed %s │ Interval %s\t│\n"+
		"├───────────────────────────────────────────────┤\n"+
		"│ DBFilePath %s\t│\n"+
		"├───────────────────────────────────────────────┤\n"+
		"│ ImagesFolder %s\t│\n"+
		"├───────────────────────────────────────────────┤\n"+
		"│ HTTPListen %s\t│\n"+
		"└───────────────────────────────────────────────┘\n",
		Version, BuildTime, source, args.Interval.String(), args.DBFilePath,
		args.ImagesFolder, args.HTTPListen)

	err = os.MkdirAll(filepath.Dir(args.DBFilePath), 0744)
	if err != nil {
		panic(fmt.Sprintf("failed to create db dir: %v", err))
	}

	db, err := buntdb.Open(args.DBFilePath)
	if err != nil {
		panic(err)
	}

	defer db.Close()

	err = db.CreateIndex(httpapi.TimestampIndex, "*", buntdb.IndexJSON(httpapi.TimestampIndex))
	if err != nil {
		panic(err)
	}

	cookie := os.Getenv(cookieKey)
	if cookie == "" {
		panic(fmt.Sprintf("please set the %s variable", cookieKey))
	}

	err = os.MkdirAll(args.ImagesFolder, 0744)
	if err != nil {
		panic(fmt.Sprintf("failed to create config dir: %v", err))
	}

	session := types.NewSession(args.UserID, args.CSRFToken)
	session.AutoPatch = !args.NoPatch
	session.DropIncompatKeys = args.DropIncompat

	if args.UUID != "" {
		session.UUID = args.UUID
	}

	if args.PhoneID != "" {
		session.PhoneID = args.PhoneID
	}

	client := http.DefaultClient

	caller := instagram.NewHTTPCaller(instagram.CallerConfig{
		BaseURL:   args.BaseURL,
		UserAgent: args.UserAgent,
		Cookie:    cookie,
		SigKey:    os.Getenv(sigKeyKey),
	}, client, logger)

	feeds := instagram.NewFeedEndpoints(session, caller, compat.NewMediaPatcher())

	agg := aggregator.NewFeedAggregator(db, feeds, source, args.ImagesFolder, client, logger)
	httpserver := httpapi.NewNativeHTTP(args.HTTPListen, db, args.ImagesFolder, logger)

	wait := sync.WaitGroup{}

	wait.Add(1)
	go func() {
		defer wait.Done()
		err = agg.Start(args.Interval)
		if err != nil {
			logger.Err(err).Msg("failed to start the aggregator... exiting")
			os.Exit(1)
		}
		logger.Info().Msg("aggregator done")
	}()

	wait.Add(1)
	go func() {
		defer wait.Done()
		httpserver.Start()
		logger.Info().Msg("http server done")
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)

	<-quit

	agg.Stop()
	httpserver.Stop()

	wait.Wait()

	logger.Info().Msg("done")
}
