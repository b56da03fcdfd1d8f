package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	_ "github.com/fieldmesh/loraota/pkg/radio/udpradio"

	"github.com/fieldmesh/loraota/pkg/appconfig"
	"github.com/fieldmesh/loraota/pkg/consumer"
	"github.com/fieldmesh/loraota/pkg/consumer/pagestore"
	"github.com/fieldmesh/loraota/pkg/radio"
)

func main() {
	log.SetLevel(log.DebugLevel)

	configPath := flag.String("c", "node.ini", "config file path")
	backend := flag.String("backend", "udp", "radio PHY backend (udp)")
	channel := flag.String("channel", "127.0.0.1:9001,127.0.0.1:9000", "backend-specific channel identifier")
	imagePath := flag.String("o", "firmware.bin", "path to write the received firmware image")
	pageSize := flag.Uint("page-size", pagestore.DefaultPageSize, "page commit size in bytes")
	lookahead := flag.Int("lookahead", pagestore.DefaultLookahead, "out-of-order lookahead queue depth")
	flag.Parse()

	cfg, err := appconfig.Load(*configPath)
	if err != nil {
		fmt.Printf("could not load config %v: %v\n", *configPath, err)
		os.Exit(1)
	}

	phy, err := radio.NewPHY(*backend, *channel)
	if err != nil {
		fmt.Printf("could not open radio backend %v: %v\n", *backend, err)
		os.Exit(1)
	}
	link := radio.NewLink(phy, cfg.Radio.LocalAddress)

	sink, err := pagestore.NewFileSink(*imagePath, uint32(*pageSize))
	if err != nil {
		fmt.Printf("could not open image file %v: %v\n", *imagePath, err)
		os.Exit(1)
	}
	defer sink.Close()

	store := pagestore.New(uint32(*pageSize), *lookahead, sink)
	node := consumer.New(link, store)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			frame, err := link.ReceiveContinuous()
			if err != nil {
				log.Warnf("[NODE] radio receive failed: %v", err)
				return
			}
			if err := node.ProcessMessage(frame.Source, frame.Payload); err != nil {
				log.Debugf("[NODE] dropped frame from=%d: %v", frame.Source, err)
			}
		}
	}()

	log.Infof("[NODE] listening addr=%d writing to %s", cfg.Radio.LocalAddress, *imagePath)
	select {
	case <-quit:
		log.Info("[NODE] shutting down")
	case <-done:
	}
	store.Flush()
}
