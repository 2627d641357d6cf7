package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"alfred/internal/types"
	"alfred/internal/utils"

	"go.uber.org/zap"
)

// datagramSize is the receive buffer for a single discovery datagram
const datagramSize = 1024

// Transport broadcasts a discovery probe and collects agent replies
type Transport struct {
	// Port is the UDP discovery port agents listen on
	Port int
	// BroadcastAddr is where the probe is sent, usually 255.255.255.255
	BroadcastAddr string
	// Window is how long replies are collected
	Window time.Duration

	logger *zap.Logger
}

// NewTransport creates a transport
func NewTransport(port int, broadcastAddr string, window time.Duration, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{
		Port:          port,
		BroadcastAddr: broadcastAddr,
		Window:        window,
		logger:        logger.Named("broadcast"),
	}
}

// Probe sends one probe and returns a host:port candidate per valid reply,
// in arrival order and without deduplication. The host is the reply's
// source address. Malformed or foreign datagrams are skipped.
func (t *Transport) Probe(ctx context.Context) ([]string, error) {
	dst, err := net.ResolveUDPAddr("udp4", utils.JoinHostPort(t.BroadcastAddr, t.Port))
	if err != nil {
		return nil, fmt.Errorf("invalid broadcast address: %w", err)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("failed to open discovery socket: %w", err)
	}
	defer conn.Close()

	probe, err := json.Marshal(types.DiscoveryProbe{
		Type:        types.DiscoveryProbeType,
		Coordinator: types.DiscoveryCoordinatorName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal probe: %w", err)
	}

	if _, err := conn.WriteToUDP(probe, dst); err != nil {
		return nil, fmt.Errorf("failed to send probe: %w", err)
	}
	t.logger.Debug("Discovery probe sent", zap.String("destination", dst.String()))

	deadline := time.Now().Add(t.Window)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}

	// Unblock the read if ctx ends before the window does
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	var candidates []string
	buf := make([]byte, datagramSize)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				t.logger.Debug("Discovery window closed", zap.Int("replies", len(candidates)))
			} else {
				t.logger.Warn("Discovery receive failed", zap.Error(err))
			}
			break
		}

		var reply types.DiscoveryReply
		if err := json.Unmarshal(buf[:n], &reply); err != nil {
			t.logger.Warn("Ignoring malformed discovery reply",
				zap.String("from", from.String()),
				zap.Error(err))
			continue
		}
		if reply.Type != types.DiscoveryReplyType {
			t.logger.Debug("Ignoring unexpected datagram",
				zap.String("from", from.String()),
				zap.String("type", reply.Type))
			continue
		}

		port := reply.Port
		if port == 0 {
			port = types.DefaultAgentPort
		}
		candidate := utils.JoinHostPort(from.IP.String(), port)
		candidates = append(candidates, candidate)

		t.logger.Info("Agent answered discovery",
			zap.String("candidate", candidate),
			zap.String("agent_id", reply.AgentID),
			zap.String("name", reply.Name))
	}

	return candidates, nil
}
