package emr

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/emr"
	"github.com/aws/aws-sdk-go/service/emr/emriface"
	"github.com/ksb256/searchrev"
	"github.com/pkg/errors"
)

type fakeEMR struct {
	emriface.EMRAPI

	input   *emr.RunJobFlowInput
	waited  *emr.DescribeStepInput
	waitErr error
}

func (f *fakeEMR) RunJobFlowWithContext(ctx aws.Context, in *emr.RunJobFlowInput, opts ...request.Option) (*emr.RunJobFlowOutput, error) {
	f.input = in
	return &emr.RunJobFlowOutput{JobFlowId: aws.String("j-123")}, nil
}

func (f *fakeEMR) ListStepsWithContext(ctx aws.Context, in *emr.ListStepsInput, opts ...request.Option) (*emr.ListStepsOutput, error) {
	return &emr.ListStepsOutput{Steps: []*emr.StepSummary{{Id: aws.String("s-456")}}}, nil
}

func (f *fakeEMR) WaitUntilStepCompleteWithContext(ctx aws.Context, in *emr.DescribeStepInput, opts ...request.WaiterOption) error {
	f.waited = in
	return f.waitErr
}

var job = searchrev.Job{
	Program: "s3://staging/bin/searchrev",
	Input:   "s3://staging/data[82].tsv",
	Output:  "s3://staging/reports/",
}

func TestStepArgs(t *testing.T) {
	args := StepArgs(job)
	if len(args) != 3 || args[0] != "bash" || args[1] != "-c" {
		t.Fatalf("unexpected args: %v", args)
	}
	want := "aws s3 cp 's3://staging/bin/searchrev' /tmp/searchrev && chmod +x /tmp/searchrev && /tmp/searchrev 'run' '--input' 's3://staging/data[82].tsv' '--output' 's3://staging/reports/'"
	if args[2] != want {
		t.Fatalf("unexpected script:\n%s\nwant:\n%s", args[2], want)
	}
}

func TestShellQuote(t *testing.T) {
	if got := shellQuote("it's"); got != `'it'"'"'s'` {
		t.Fatalf("unexpected quoting: %s", got)
	}
}

func TestLaunch(t *testing.T) {
	f := &fakeEMR{}
	conf := DefaultConfig()
	conf.SubnetID = "subnet-1"
	l := NewLauncherWithClient(conf, f)
	if err := l.Launch(context.Background(), job); err != nil {
		t.Fatalf("launching: %v", err)
	}
	if aws.StringValue(f.input.Instances.Ec2SubnetId) != "subnet-1" {
		t.Fatalf("subnet not passed: %v", f.input.Instances)
	}
	if f.input.LogUri != nil {
		t.Fatalf("empty log uri should be left unset")
	}
	step := f.input.Steps[0]
	if aws.StringValue(step.ActionOnFailure) != emr.ActionOnFailureTerminateCluster {
		t.Fatalf("unexpected action on failure: %v", aws.StringValue(step.ActionOnFailure))
	}
	if aws.BoolValue(f.input.Instances.KeepJobFlowAliveWhenNoSteps) {
		t.Fatalf("cluster should not outlive its step")
	}
	if !strings.Contains(aws.StringValueSlice(step.HadoopJarStep.Args)[2], "'--input'") {
		t.Fatalf("step args missing run command: %v", aws.StringValueSlice(step.HadoopJarStep.Args))
	}
	if aws.StringValue(f.waited.ClusterId) != "j-123" || aws.StringValue(f.waited.StepId) != "s-456" {
		t.Fatalf("waited on wrong step: %v", f.waited)
	}
}

func TestLaunchStepFailure(t *testing.T) {
	f := &fakeEMR{waitErr: errors.New("ResourceNotReady: failed waiting for successful resource state")}
	l := NewLauncherWithClient(DefaultConfig(), f)
	err := l.Launch(context.Background(), job)
	if err == nil {
		t.Fatal("expected step failure to be reported")
	}
	if !strings.Contains(err.Error(), "s-456") {
		t.Fatalf("error should name the step: %v", err)
	}
}
