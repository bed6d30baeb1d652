package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

// options are read from an optional yaml file first, then from the
// environment and the command line, which win over the file.
type options struct {
	ConfigFile string `long:"config" env:"BUTTERFLY_CONFIG" description:"path to a yaml config file" yaml:"-"`

	NodeID         string `long:"node-id" env:"BUTTERFLY_NODE_ID" description:"unique member id, random if empty" yaml:"node_id"`
	SwimBindAddr   string `long:"swim-bind-addr" env:"BUTTERFLY_SWIM_BIND_ADDR" description:"udp address of the failure detector" yaml:"swim_bind_addr"`
	GossipBindAddr string `long:"gossip-bind-addr" env:"BUTTERFLY_GOSSIP_BIND_ADDR" description:"tcp address of the rumor rpc" yaml:"gossip_bind_addr"`
	AdvertiseAddr  string `long:"advertise-addr" env:"BUTTERFLY_ADVERTISE_ADDR" description:"ip address advertised to other members" yaml:"advertise_addr"`
	Peers          string `long:"peers" env:"BUTTERFLY_PEERS" description:"comma-separated list of seed swim addresses" yaml:"peers"`
	HTTPBindAddr   string `long:"http-bind-addr" env:"BUTTERFLY_HTTP_BIND_ADDR" description:"address of the status api, disabled if empty" yaml:"http_bind_addr"`
	DataDir        string `long:"data-dir" env:"BUTTERFLY_DATA_DIR" description:"directory to persist the state in, disabled if empty" yaml:"data_dir"`
	RingKeyFile    string `long:"ring-key-file" env:"BUTTERFLY_RING_KEY_FILE" description:"file with the ring key to encrypt traffic with" yaml:"ring_key_file"`

	EtcdEndpoints string `long:"etcd-endpoints" env:"BUTTERFLY_ETCD_ENDPOINTS" description:"comma-separated list of etcd endpoints used for seed discovery" yaml:"etcd_endpoints"`
	EtcdLeaseTTL  int64  `long:"etcd-lease-ttl" env:"BUTTERFLY_ETCD_LEASE_TTL" description:"ttl of the etcd registration (s)" yaml:"etcd_lease_ttl"`

	ServiceGroup string `long:"service-group" env:"BUTTERFLY_SERVICE_GROUP" description:"service group to join and elect a leader in" yaml:"service_group"`
	Suitability  uint64 `long:"suitability" env:"BUTTERFLY_SUITABILITY" description:"leader election suitability, higher wins" yaml:"suitability"`
	Permanent    bool   `long:"permanent" env:"BUTTERFLY_PERMANENT" description:"never expire this member" yaml:"permanent"`

	Verbose bool `long:"verbose" env:"BUTTERFLY_VERBOSE" description:"verbose mode" yaml:"verbose"`
}

func defaultOptions() *options {
	return &options{
		SwimBindAddr:   "0.0.0.0:9638",
		GossipBindAddr: "0.0.0.0:9638",
		HTTPBindAddr:   "0.0.0.0:9631",
		EtcdLeaseTTL:   10,
	}
}

// parseOptions parses the arguments twice: the first pass only finds the
// config file, the second applies the arguments on top of it. Options have
// no default tags, so that the second pass keeps the values from the file.
func parseOptions(args []string) (*options, error) {
	opts := defaultOptions()

	if _, err := flags.NewParser(opts, flags.Default).ParseArgs(args); err != nil {
		return nil, err
	}

	if opts.ConfigFile == "" {
		return opts, nil
	}

	data, err := os.ReadFile(opts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	fileOpts := defaultOptions()
	if err := yaml.Unmarshal(data, fileOpts); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", opts.ConfigFile, err)
	}

	if _, err := flags.NewParser(fileOpts, flags.Default).ParseArgs(args); err != nil {
		return nil, err
	}

	return fileOpts, nil
}

func parseAddrs(addrs string) []string {
	sl := strings.Split(addrs, ",")
	res := make([]string, 0, len(sl))

	for _, addr := range sl {
		trimmed := strings.TrimSpace(addr)
		if trimmed != "" {
			res = append(res, trimmed)
		}
	}

	return res
}
