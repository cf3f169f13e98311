package main

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/grandcat/zeroconf"
)

const serviceType = "_collabcanvas._tcp"

// advertise announces the websocket endpoint on the local network so agents
// can find it without an address.
func advertise(instance, addr string) (*zeroconf.Server, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("parse listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("parse port %q: %w", portStr, err)
	}
	if instance == "" {
		host, _ := os.Hostname()
		instance = fmt.Sprintf("CollabCanvas-%s", host)
	}
	server, err := zeroconf.Register(instance, serviceType, "local.", port, []string{"path=/ws"}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	return server, nil
}
