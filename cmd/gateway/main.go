package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	_ "github.com/fieldmesh/loraota/pkg/radio/udpradio"

	"github.com/fieldmesh/loraota/pkg/appconfig"
	"github.com/fieldmesh/loraota/pkg/gateway"
	gatewayhttp "github.com/fieldmesh/loraota/pkg/gateway/http"
	"github.com/fieldmesh/loraota/pkg/hostlink"
	"github.com/fieldmesh/loraota/pkg/hostlink/serialtransport"
	"github.com/fieldmesh/loraota/pkg/producer"
	"github.com/fieldmesh/loraota/pkg/radio"
)

func main() {
	log.SetLevel(log.DebugLevel)

	configPath := flag.String("c", "gateway.ini", "config file path")
	backend := flag.String("backend", "udp", "radio PHY backend (udp)")
	channel := flag.String("channel", "127.0.0.1:9000,127.0.0.1:9001", "backend-specific channel identifier")
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

	var metrics *gateway.Metrics
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		metrics = gateway.NewMetrics(reg)
		go func() {
			mux := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
			log.Infof("[GATEWAY] serving metrics on %s", cfg.Metrics.Listen)
			if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil {
				log.Warnf("[GATEWAY] metrics server stopped: %v", err)
			}
		}()
	}

	var status *gateway.StatusPublisher
	if cfg.Redis.Enabled {
		status, err = gateway.NewStatusPublisher(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.KeyFmt)
		if err != nil {
			fmt.Printf("could not connect to redis: %v\n", err)
			os.Exit(1)
		}
		defer status.Close()
	}

	producerCfg := producer.Config{
		ReceiveWindow: cfg.Radio.ReceiveWindow,
		Retries:       cfg.Producer.Retries,
		RetryBackoff:  cfg.Producer.RetryBackoff,
	}
	gw := gateway.New(link, producerCfg, metrics, status)

	if cfg.HTTP.Enabled {
		statusServer := gatewayhttp.NewStatusServer(gw.Producer())
		go func() {
			log.Infof("[GATEWAY] serving status endpoint on %s", cfg.HTTP.Listen)
			if err := statusServer.ListenAndServe(cfg.HTTP.Listen); err != nil {
				log.Warnf("[GATEWAY] status server stopped: %v", err)
			}
		}()
	}

	transport, err := serialtransport.Open(cfg.Serial.Device, cfg.Serial.Baud)
	if err != nil {
		fmt.Printf("could not open serial device %v: %v\n", cfg.Serial.Device, err)
		os.Exit(1)
	}
	defer transport.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("[GATEWAY] shutting down")
		cancel()
	}()

	requests := make(chan hostlink.Message, 8)
	replies := make(chan hostlink.Message, 8)

	go readHostRequests(ctx, transport, requests)
	go writeHostReplies(ctx, transport, replies)

	log.Infof("[GATEWAY] listening on %s addr=%d", cfg.Serial.Device, cfg.Radio.LocalAddress)
	gw.Run(ctx, requests, replies)
}

func readHostRequests(ctx context.Context, t *serialtransport.Transport, out chan<- hostlink.Message) {
	for {
		buf, err := t.ReadFrame()
		if err != nil {
			log.Warnf("[GATEWAY] hostlink read failed: %v", err)
			return
		}
		msg, err := hostlink.Unmarshal(buf)
		if err != nil {
			log.Warnf("[GATEWAY] hostlink decode failed: %v", err)
			continue
		}
		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func writeHostReplies(ctx context.Context, t *serialtransport.Transport, in <-chan hostlink.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-in:
			buf, err := hostlink.Marshal(msg)
			if err != nil {
				log.Warnf("[GATEWAY] hostlink encode failed: %v", err)
				continue
			}
			if err := t.WriteFrame(buf); err != nil {
				log.Warnf("[GATEWAY] hostlink write failed: %v", err)
			}
		}
	}
}
