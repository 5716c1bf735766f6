// Package emr launches pipeline runs on a transient Amazon EMR cluster. The
// cluster runs a single step which fetches the program binary from S3 and
// executes its run command, then terminates. Failure of the step terminates
// the cluster and is reported to the caller; nothing is retried.
package emr

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/emr"
	"github.com/aws/aws-sdk-go/service/emr/emriface"
	"github.com/ksb256/searchrev"
	"github.com/pkg/errors"
)

// Config is the cluster configuration passed through to EMR as is.
type Config struct {
	Name               string
	Region             string
	LogURI             string
	ReleaseLabel       string
	MasterInstanceType string
	SlaveInstanceType  string
	InstanceCount      int64
	SubnetID           string
	JobFlowRole        string
	ServiceRole        string
}

// DefaultConfig returns the configuration used by NewLauncher when fields are
// left empty.
func DefaultConfig() Config {
	return Config{
		Name:               "searchrev",
		Region:             "us-east-1",
		ReleaseLabel:       "emr-5.34.0",
		MasterInstanceType: "m5.xlarge",
		SlaveInstanceType:  "m5.large",
		InstanceCount:      1,
		JobFlowRole:        "EMR_EC2_DefaultRole",
		ServiceRole:        "EMR_DefaultRole",
	}
}

// binPath is where the step stores the program on the master node.
const binPath = "/tmp/searchrev"

// Launcher is a searchrev.Launcher which runs jobs on EMR.
type Launcher struct {
	Config Config
	Log    searchrev.Logger

	emr emriface.EMRAPI
}

var _ searchrev.Launcher = &Launcher{}

// NewLauncher returns a Launcher using a session from the ambient AWS
// configuration.
func NewLauncher(conf Config) (*Launcher, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(conf.Region)},
	)
	if err != nil {
		return nil, errors.Wrap(err, "getting new session")
	}
	return NewLauncherWithClient(conf, emr.New(sess)), nil
}

// NewLauncherWithClient returns a Launcher which uses client.
func NewLauncherWithClient(conf Config, client emriface.EMRAPI) *Launcher {
	return &Launcher{
		Config: conf,
		Log:    searchrev.NopLogger{},
		emr:    client,
	}
}

// shellQuote quotes s for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.Replace(s, "'", `'"'"'`, -1) + "'"
}

// StepArgs is the command-runner invocation for job: copy the program from
// S3, make it executable, and run it.
func StepArgs(job searchrev.Job) []string {
	run := make([]string, 0, 8)
	run = append(run, binPath)
	for _, a := range job.RunArgs() {
		run = append(run, shellQuote(a))
	}
	script := "aws s3 cp " + shellQuote(job.Program) + " " + binPath +
		" && chmod +x " + binPath +
		" && " + strings.Join(run, " ")
	return []string{"bash", "-c", script}
}

func (l *Launcher) jobFlowInput(job searchrev.Job) *emr.RunJobFlowInput {
	c := l.Config
	in := &emr.RunJobFlowInput{
		Name:         aws.String(c.Name),
		ReleaseLabel: aws.String(c.ReleaseLabel),
		Instances: &emr.JobFlowInstancesConfig{
			MasterInstanceType:          aws.String(c.MasterInstanceType),
			SlaveInstanceType:           aws.String(c.SlaveInstanceType),
			InstanceCount:               aws.Int64(c.InstanceCount),
			KeepJobFlowAliveWhenNoSteps: aws.Bool(false),
			TerminationProtected:        aws.Bool(false),
		},
		VisibleToAllUsers: aws.Bool(true),
		JobFlowRole:       aws.String(c.JobFlowRole),
		ServiceRole:       aws.String(c.ServiceRole),
		Steps: []*emr.StepConfig{
			{
				Name:            aws.String("search-keyword-revenue"),
				ActionOnFailure: aws.String(emr.ActionOnFailureTerminateCluster),
				HadoopJarStep: &emr.HadoopJarStepConfig{
					Jar:  aws.String("command-runner.jar"),
					Args: aws.StringSlice(StepArgs(job)),
				},
			},
		},
	}
	if c.LogURI != "" {
		in.LogUri = aws.String(c.LogURI)
	}
	if c.SubnetID != "" {
		in.Instances.Ec2SubnetId = aws.String(c.SubnetID)
	}
	return in
}

// Launch starts the cluster and waits for its step to finish.
func (l *Launcher) Launch(ctx context.Context, job searchrev.Job) error {
	out, err := l.emr.RunJobFlowWithContext(ctx, l.jobFlowInput(job))
	if err != nil {
		return errors.Wrap(err, "running job flow")
	}
	clusterID := aws.StringValue(out.JobFlowId)
	l.Log.Printf("started EMR cluster %s", clusterID)

	steps, err := l.emr.ListStepsWithContext(ctx, &emr.ListStepsInput{ClusterId: out.JobFlowId})
	if err != nil {
		return errors.Wrapf(err, "listing steps of %s", clusterID)
	}
	if len(steps.Steps) == 0 {
		return errors.Errorf("cluster %s has no steps", clusterID)
	}
	stepID := steps.Steps[0].Id
	l.Log.Printf("waiting for step %s on cluster %s", aws.StringValue(stepID), clusterID)

	desc := &emr.DescribeStepInput{ClusterId: out.JobFlowId, StepId: stepID}
	if err := l.emr.WaitUntilStepCompleteWithContext(ctx, desc); err != nil {
		return errors.Wrapf(err, "step %s on cluster %s did not complete", aws.StringValue(stepID), clusterID)
	}
	l.Log.Printf("step %s on cluster %s completed", aws.StringValue(stepID), clusterID)
	return nil
}
