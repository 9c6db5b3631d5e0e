package compat

import (
	"fmt"

	"github.com/lixenwraith/disklog"
)

// Builder provides a flexible way to create sink adapters for gnet and fasthttp
// It can use an existing *disklog.Sink or create a new one from a *disklog.Config
type Builder struct {
	sink *disklog.Sink
	cfg  *disklog.Config
	opts []disklog.Option
	err  error
}

// NewBuilder creates a new adapter builder
func NewBuilder() *Builder {
	return &Builder{}
}

// WithSink specifies an existing sink to use for the adapters
// If this is set WithConfig is ignored
func (b *Builder) WithSink(s *disklog.Sink) *Builder {
	if s == nil {
		b.err = fmt.Errorf("disklog/compat: provided sink cannot be nil")
		return b
	}
	b.sink = s
	return b
}

// WithConfig provides a configuration for a new sink
// This is used only if an existing sink is NOT provided via WithSink
// If neither is used, a sink with the default configuration is created
func (b *Builder) WithConfig(cfg *disklog.Config, opts ...disklog.Option) *Builder {
	b.cfg = cfg
	b.opts = opts
	return b
}

// getSink resolves the sink to be used, creating one if necessary
func (b *Builder) getSink() (*disklog.Sink, error) {
	if b.err != nil {
		return nil, b.err
	}

	if b.sink != nil {
		return b.sink, nil
	}

	cfg := b.cfg
	if cfg == nil {
		cfg = disklog.DefaultConfig()
	}

	s, err := disklog.New(cfg, b.opts...)
	if err != nil {
		return nil, fmt.Errorf("disklog/compat: failed to create sink: %w", err)
	}

	// Cache the new sink for subsequent builds with this builder
	b.sink = s
	return s, nil
}

// BuildGnet creates a gnet adapter
func (b *Builder) BuildGnet(opts ...GnetOption) (*GnetAdapter, error) {
	s, err := b.getSink()
	if err != nil {
		return nil, err
	}
	return NewGnetAdapter(s, opts...), nil
}

// BuildFastHTTP creates a fasthttp adapter
func (b *Builder) BuildFastHTTP(opts ...FastHTTPOption) (*FastHTTPAdapter, error) {
	s, err := b.getSink()
	if err != nil {
		return nil, err
	}
	return NewFastHTTPAdapter(s, opts...), nil
}

// GetSink returns the underlying sink, creating it if needed
func (b *Builder) GetSink() (*disklog.Sink, error) {
	return b.getSink()
}

// --- Example Usage ---
//
//	sink, err := disklog.NewBuilder().Directory("/var/log/app").FolderName("net").Build()
//	if err != nil { /* handle error */ }
//	defer sink.Close()
//
//	builder := compat.NewBuilder().WithSink(sink)
//	gnetLogger, _ := builder.BuildGnet()
//	fasthttpLogger, _ := builder.BuildFastHTTP()
//
//	go gnet.Run(events, "tcp://:9000", gnet.WithLogger(gnetLogger))
//
//	server := &fasthttp.Server{Handler: handler, Logger: fasthttpLogger}
//	go server.ListenAndServe(":8080")
