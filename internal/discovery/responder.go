package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"alfred/internal/types"

	"go.uber.org/zap"
)

// Responder answers discovery probes on behalf of an agent
type Responder struct {
	reply  types.DiscoveryReply
	logger *zap.Logger
}

// NewResponder creates a responder advertising the given agent
func NewResponder(agent types.AgentDescriptor, logger *zap.Logger) *Responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Responder{
		reply: types.DiscoveryReply{
			Type:    types.DiscoveryReplyType,
			Port:    agent.Port,
			AgentID: agent.ID,
			Name:    agent.Name,
			OSType:  agent.OSType,
		},
		logger: logger.Named("responder"),
	}
}

// ListenAndServe binds addr (e.g. ":5099") and serves until ctx ends
func (r *Responder) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp4", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for discovery: %w", err)
	}
	r.logger.Info("Listening for discovery probes", zap.String("address", conn.LocalAddr().String()))
	return r.Serve(ctx, conn)
}

// Serve answers probes read from conn until ctx ends; it closes conn
func (r *Responder) Serve(ctx context.Context, conn net.PacketConn) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	payload, err := json.Marshal(r.reply)
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}

	buf := make([]byte, datagramSize)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			r.logger.Debug("Discovery read failed", zap.Error(err))
			continue
		}

		var probe types.DiscoveryProbe
		if err := json.Unmarshal(buf[:n], &probe); err != nil || probe.Type != types.DiscoveryProbeType {
			r.logger.Debug("Ignoring datagram", zap.String("from", from.String()))
			continue
		}

		if _, err := conn.WriteTo(payload, from); err != nil {
			r.logger.Debug("Discovery reply failed", zap.String("to", from.String()), zap.Error(err))
			continue
		}
		r.logger.Info("Responded to discovery",
			zap.String("from", from.String()),
			zap.String("coordinator", probe.Coordinator))
	}
}
