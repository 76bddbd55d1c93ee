package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/irctelegram/ircbridge/internal/biz/usecase"
	"github.com/irctelegram/ircbridge/internal/conf"
	"github.com/irctelegram/ircbridge/internal/data"
	"github.com/irctelegram/ircbridge/internal/infra/telegram"
	"github.com/irctelegram/ircbridge/internal/logging"
)

func main() {
	parseMode := flag.String("mode", "", "parse mode: IRC, HTML, Markdown or Plain (default BRIDGE_PARSE_MODE)")
	timeout := flag.Duration("timeout", 30*time.Second, "overall timeout")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: send-message [-mode IRC] <target> <message>")
		fmt.Fprintln(os.Stderr, "Targets: #group  +channel  &private  !i:account@handle")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(1)
	}
	target := flag.Arg(0)
	message := strings.Join(flag.Args()[1:], " ")

	conf.LoadDotEnv()
	cfg, err := conf.LoadFromEnv()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	credential, err := cfg.Credential()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stderr, &logging.Options{Level: logging.ParseLevel(cfg.Log.Level)})
	telegram.InstallLogger(logger)

	mode := cfg.Bridge.ParseMode
	if *parseMode != "" {
		mode = *parseMode
	}
	if strings.EqualFold(mode, "plain") {
		mode = ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	connector, err := data.NewSendOnlyConnector(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	chat, err := connector.Connect(ctx, credential)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer chat.Close()

	// Send message
	ref, err := usecase.NewDeliveryUsecase(chat, logger).SendToTarget(ctx, target, message, mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		chat.Close()
		os.Exit(1)
	}

	fmt.Printf("Message sent successfully! (%s)\n", ref)
}
