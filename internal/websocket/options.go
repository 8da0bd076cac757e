package websocket

import "time"

// Options tunes the transport; relay policy never lives here
type Options struct {
	PingInterval    time.Duration // how often the server pings an idle client
	ReadTimeout     time.Duration // pong wait; the read deadline is extended by this on every pong
	WriteTimeout    time.Duration // deadline for one frame write
	SendBuffer      int           // outbound frames queued per connection before drops
	MaxMessageSize  int64         // largest inbound frame accepted
	ReadBufferSize  int
	WriteBufferSize int
}

// DefaultOptions returns the production transport settings
// FUNCTIONAL DISCOVERY: Ping interval must stay below the read timeout or
// healthy idle clients get dropped between pongs
func DefaultOptions() Options {
	return Options{
		PingInterval:    25 * time.Second,
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    5 * time.Second,
		SendBuffer:      100,
		MaxMessageSize:  1 << 20,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PingInterval <= 0 {
		o.PingInterval = d.PingInterval
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = d.ReadTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = d.WriteTimeout
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = d.SendBuffer
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = d.MaxMessageSize
	}
	if o.ReadBufferSize <= 0 {
		o.ReadBufferSize = d.ReadBufferSize
	}
	if o.WriteBufferSize <= 0 {
		o.WriteBufferSize = d.WriteBufferSize
	}
	return o
}
