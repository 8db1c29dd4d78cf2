// Package runner holds the command line of shardcomm-run and the ways it
// starts workers.
package runner

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/lsds/shardcomm/srcs/go/base"
	"github.com/lsds/shardcomm/srcs/go/env"
	"github.com/lsds/shardcomm/srcs/go/log"
	"github.com/lsds/shardcomm/srcs/go/plan"
	"github.com/lsds/shardcomm/srcs/go/plan/hostfile"
	"github.com/lsds/shardcomm/srcs/go/utils"
	"github.com/pkg/errors"
)

var (
	errMissingProgramName = errors.New("missing program name")
	errBadLogLevel        = errors.New("bad log level")
)

// Init parses args into f and exits on error. Unless -q is given it dumps
// the arguments, environment and NICs first.
func Init(f *FlagSet, args []string) {
	if err := f.Parse(args); err != nil {
		utils.ExitErr(err)
	}
	if f.Quiet {
		return
	}
	utils.Dump(os.Stdout)
}

type FlagSet struct {
	// cluster
	ClusterSize int
	HostList    plan.HostList
	PortRange   plan.PortRange
	Self        string
	NIC         string
	User        string
	Remote      bool

	// job
	Strategy     base.Strategy
	PipelineSize int
	TensorSize   int
	Seed         int64
	Timeout      time.Duration

	// logging
	VerboseLog bool
	Logfile    string
	LogDir     string
	LogLevel   string
	Quiet      bool

	Prog string
	Args []string

	hosts    string
	hostFile string
}

func (f *FlagSet) Register(fs *flag.FlagSet) {
	fs.IntVar(&f.ClusterSize, "np", 1, "number of workers")
	fs.StringVar(&f.hosts, "H", plan.DefaultHostList.String(), "hosts as <ipv4>[:<slots>[:<public addr>]],...")
	fs.StringVar(&f.hostFile, "hostfile", "", "read hosts from this file instead of -H")
	f.PortRange = plan.DefaultPortRange
	fs.Var(&f.PortRange, "port-range", "ports given to the workers of each host")
	fs.StringVar(&f.Self, "self", "", "IPv4 address of this host")
	fs.StringVar(&f.NIC, "nic", "", "take the IPv4 address of this host from this interface")
	fs.StringVar(&f.User, "u", "", "ssh user")
	fs.BoolVar(&f.Remote, "remote", false, "start the workers of every host over ssh")

	f.Strategy = base.DefaultStrategy
	fs.Var(&f.Strategy, "strategy", "all-reduce strategy: "+strings.Join(base.StrategyNames(), " | "))
	fs.IntVar(&f.PipelineSize, "pipeline-size", 1, "extent of the pipeline parallel axis")
	fs.IntVar(&f.TensorSize, "tensor-size", 1, "extent of the tensor parallel axis")
	fs.Int64Var(&f.Seed, "seed", env.DefaultSeed, "random seed shared by all workers")
	fs.DurationVar(&f.Timeout, "timeout", 0, "kill the job after this long; 0 waits forever")

	fs.BoolVar(&f.VerboseLog, "v", true, "forward worker output")
	fs.StringVar(&f.Logfile, "logfile", "", "also write the launcher log here")
	fs.StringVar(&f.LogDir, "logdir", "", "write worker output to files in this directory")
	fs.StringVar(&f.LogLevel, "log-level", "", "DEBUG | INFO | WARN | ERROR")
	fs.BoolVar(&f.Quiet, "q", false, "skip the startup dump")
}

// Parse reads the flags of args[1:]; the first remaining argument is the
// worker program and the rest are its arguments.
func (f *FlagSet) Parse(args []string) error {
	fs := flag.NewFlagSet(args[0], flag.ExitOnError)
	f.Register(fs)
	fs.Parse(args[1:])
	if err := f.loadHosts(); err != nil {
		return err
	}
	if f.LogLevel != "" {
		level, ok := log.ParseLevel(strings.ToUpper(f.LogLevel))
		if !ok {
			return errors.Wrap(errBadLogLevel, f.LogLevel)
		}
		log.SetLevel(level)
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return errMissingProgramName
	}
	f.Prog, f.Args = rest[0], rest[1:]
	return nil
}

func (f *FlagSet) loadHosts() (err error) {
	if f.hostFile != "" {
		f.HostList, err = hostfile.ParseFile(f.hostFile)
	} else {
		f.HostList, err = plan.ParseHostList(f.hosts)
	}
	return err
}
