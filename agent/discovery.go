package main

import (
	"context"
	"fmt"
	"log"

	"github.com/grandcat/zeroconf"
)

const serviceType = "_collabcanvas._tcp"

// discover browses the local network for a canvas server and returns the
// websocket URL of the first one that answers.
func discover(ctx context.Context) (string, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return "", fmt.Errorf("failed to initialize mDNS resolver: %w", err)
	}
	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan string, 1)
	go func(results <-chan *zeroconf.ServiceEntry) {
		for entry := range results {
			if len(entry.AddrIPv4) == 0 || entry.Port == 0 {
				continue
			}
			log.Printf("mDNS discovered server: %s at %s:%d", entry.Instance, entry.AddrIPv4[0], entry.Port)
			select {
			case found <- wsURL(entry.AddrIPv4[0].String(), entry.Port):
			default:
			}
		}
	}(entries)

	if err := resolver.Browse(ctx, serviceType, "local.", entries); err != nil {
		return "", fmt.Errorf("failed to browse for mDNS services: %w", err)
	}
	select {
	case url := <-found:
		return url, nil
	case <-ctx.Done():
		return "", fmt.Errorf("no %s server found: %w", serviceType, ctx.Err())
	}
}

func wsURL(host string, port int) string {
	return fmt.Sprintf("ws://%s:%d/ws", host, port)
}
