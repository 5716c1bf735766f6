// Package launch submits one pipeline run to a compute launcher and waits for
// it to finish.
package launch

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/ksb256/searchrev"
	"github.com/ksb256/searchrev/aws/emr"
	"github.com/pkg/errors"
)

// Main holds the options of the launch command.
type Main struct {
	Launcher string   `help:"Where to run: local or emr."`
	Program  string   `help:"Pipeline binary. A local path, or an s3:// URL for emr."`
	Input    string   `help:"Hit feed passed to the run command."`
	Output   string   `help:"Report prefix passed to the run command."`
	Args     []string `help:"Comma separated extra arguments for the run command."`

	EMRName          string `help:"EMR cluster name."`
	EMRRegion        string `help:"AWS region of the EMR cluster."`
	EMRLogURI        string `help:"s3:// URI for EMR logs."`
	EMRRelease       string `help:"EMR release label."`
	EMRMasterType    string `help:"EMR master instance type."`
	EMRSlaveType     string `help:"EMR core instance type."`
	EMRInstanceCount int    `help:"Number of EMR instances."`
	EMRSubnet        string `help:"EC2 subnet for the EMR cluster."`

	Verbose bool `help:"Enable debug logging."`

	stdout, stderr io.Writer
	log            searchrev.Logger
}

// NewMain gets a new Main with default values.
func NewMain() *Main {
	conf := emr.DefaultConfig()
	return &Main{
		Launcher:         "local",
		Program:          "searchrev",
		EMRName:          conf.Name,
		EMRRegion:        conf.Region,
		EMRRelease:       conf.ReleaseLabel,
		EMRMasterType:    conf.MasterInstanceType,
		EMRSlaveType:     conf.SlaveInstanceType,
		EMRInstanceCount: int(conf.InstanceCount),

		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// SetOutput sets where a local run's output goes.
func (m *Main) SetOutput(stdout, stderr io.Writer) {
	m.stdout, m.stderr = stdout, stderr
}

// Job returns the job described by m.
func (m *Main) Job() searchrev.Job {
	return searchrev.Job{
		Program: m.Program,
		Input:   m.Input,
		Output:  m.Output,
		Args:    m.Args,
	}
}

func (m *Main) launcher() (searchrev.Launcher, error) {
	switch m.Launcher {
	case "local":
		return &searchrev.LocalLauncher{Stdout: m.stdout, Stderr: m.stderr}, nil
	case "emr":
		l, err := emr.NewLauncher(emr.Config{
			Name:               m.EMRName,
			Region:             m.EMRRegion,
			LogURI:             m.EMRLogURI,
			ReleaseLabel:       m.EMRRelease,
			MasterInstanceType: m.EMRMasterType,
			SlaveInstanceType:  m.EMRSlaveType,
			InstanceCount:      int64(m.EMRInstanceCount),
			SubnetID:           m.EMRSubnet,
			JobFlowRole:        emr.DefaultConfig().JobFlowRole,
			ServiceRole:        emr.DefaultConfig().ServiceRole,
		})
		if err != nil {
			return nil, errors.Wrap(err, "getting emr launcher")
		}
		l.Log = m.log
		return l, nil
	default:
		return nil, errors.Errorf("unknown launcher '%s'", m.Launcher)
	}
}

// Run launches the job and waits for it.
func (m *Main) Run() error {
	if m.log == nil {
		zl, err := searchrev.NewZapLogger(m.Verbose)
		if err != nil {
			return errors.Wrap(err, "getting logger")
		}
		defer func() { _ = zl.Sync() }()
		m.log = zl
	}
	if m.Input == "" || m.Output == "" {
		return errors.New("both input and output are required")
	}
	l, err := m.launcher()
	if err != nil {
		return err
	}
	start := time.Now()
	m.log.Printf("launching %s on %s", m.Program, m.Launcher)
	if err := l.Launch(context.Background(), m.Job()); err != nil {
		return errors.Wrap(err, "launching job")
	}
	m.log.Printf("job finished in %v", time.Since(start))
	return nil
}
