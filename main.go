package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to config file")
	bindFlag := flag.String("bind", "", "Override bind address (e.g. 0.0.0.0)")
	portFlag := flag.Int("port", 0, "Override port")
	flag.Parse()

	cfgPath := *configPath
	if cfgPath == "" {
		home, _ := os.UserHomeDir()
		cfgPath = filepath.Join(home, ".hostpulse", "agent.yaml")
	}

	config, err := loadConfig(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *bindFlag != "" {
		config.Bind = *bindFlag
	}
	if *portFlag != 0 {
		config.Port = *portFlag
	}

	cache := newRateCache()
	cache.ClampNegative = config.ClampNegativeIO
	gpu := newGPUProbe(config.NvidiaSmiPath)
	sampler := newSampler(cache, gpu, config.TopN)
	srv := newServer(config, sampler)

	listenAddr := fmt.Sprintf("%s:%d", config.Bind, config.Port)
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", listenAddr, err)
	}

	log.Printf("hostpulse-agent %s listening on %s", version, listenAddr)
	if config.Token != "" {
		log.Printf("Auth token configured")
	} else {
		log.Printf("WARNING: No auth token configured")
	}
	if gpu.available() {
		log.Printf("GPU telemetry: %s", config.NvidiaSmiPath)
	} else {
		log.Printf("GPU telemetry: %s not found, reporting defaults", config.NvidiaSmiPath)
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		listener.Close()
		os.Exit(0)
	}()

	if err := http.Serve(listener, srv.Handler()); err != nil {
		log.Fatalf("HTTP serve: %v", err)
	}
}
