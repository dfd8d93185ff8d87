package origins

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/linnemanlabs-pipeline/internal/xerrors"
)

// ParameterGetter is the part of *ssm.Client the loader uses.
type ParameterGetter interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// NewSSMClient builds an SSM client from the default AWS credential chain.
func NewSSMClient(ctx context.Context) (*ssm.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, xerrors.Wrap(err, "load AWS config")
	}
	return ssm.NewFromConfig(awsCfg), nil
}

// FromSSM reads an allow-list from the parameter name. The value is a
// comma or newline separated list, which fits both String and StringList
// parameter types.
func FromSSM(ctx context.Context, client ParameterGetter, name string) (*AllowList, error) {
	if name == "" {
		return nil, xerrors.New("ssm parameter name is required")
	}
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, xerrors.Wrapf(err, "get SSM parameter %s", name)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return nil, xerrors.Newf("SSM parameter %s has no value", name)
	}

	var list []string
	for _, p := range strings.FieldsFunc(*out.Parameter.Value, func(r rune) bool { return r == ',' || r == '\n' }) {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	if len(list) == 0 {
		return nil, xerrors.Newf("SSM parameter %s is empty", name)
	}

	a, err := New(list)
	if err != nil {
		return nil, xerrors.Wrapf(err, "SSM parameter %s", name)
	}
	return a, nil
}
