package deploy

import (
	"context"
	"encoding/base64"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

const testAccount = "123456789012"

// engineNotFoundError mimics the container engine's not-found errors.
type engineNotFoundError struct{}

func (engineNotFoundError) Error() string { return "no such object" }
func (engineNotFoundError) NotFound()     {}

// --- registry ---

type fakeECR struct {
	repos map[string]string // name -> uri

	describeCalls int
	createCalls   int
	deleteCalls   int

	describeErr error
	authErr     error
}

func newFakeECR() *fakeECR {
	return &fakeECR{repos: map[string]string{}}
}

func (f *fakeECR) DescribeRepositories(ctx context.Context, in *ecr.DescribeRepositoriesInput, _ ...func(*ecr.Options)) (*ecr.DescribeRepositoriesOutput, error) {
	f.describeCalls++
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	name := in.RepositoryNames[0]
	uri, ok := f.repos[name]
	if !ok {
		return nil, &ecrtypes.RepositoryNotFoundException{Message: aws.String("repository not found")}
	}
	return &ecr.DescribeRepositoriesOutput{Repositories: []ecrtypes.Repository{{
		RepositoryName: aws.String(name),
		RepositoryUri:  aws.String(uri),
	}}}, nil
}

func (f *fakeECR) CreateRepository(ctx context.Context, in *ecr.CreateRepositoryInput, _ ...func(*ecr.Options)) (*ecr.CreateRepositoryOutput, error) {
	f.createCalls++
	name := aws.ToString(in.RepositoryName)
	uri := testAccount + ".dkr.ecr.us-east-1.amazonaws.com/" + name
	f.repos[name] = uri
	return &ecr.CreateRepositoryOutput{Repository: &ecrtypes.Repository{
		RepositoryName: in.RepositoryName,
		RepositoryUri:  aws.String(uri),
	}}, nil
}

func (f *fakeECR) DeleteRepository(ctx context.Context, in *ecr.DeleteRepositoryInput, _ ...func(*ecr.Options)) (*ecr.DeleteRepositoryOutput, error) {
	f.deleteCalls++
	name := aws.ToString(in.RepositoryName)
	if _, ok := f.repos[name]; !ok {
		return nil, &ecrtypes.RepositoryNotFoundException{Message: aws.String("repository not found")}
	}
	delete(f.repos, name)
	return &ecr.DeleteRepositoryOutput{}, nil
}

func (f *fakeECR) GetAuthorizationToken(ctx context.Context, in *ecr.GetAuthorizationTokenInput, _ ...func(*ecr.Options)) (*ecr.GetAuthorizationTokenOutput, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	token := base64.StdEncoding.EncodeToString([]byte("AWS:sessiontoken"))
	return &ecr.GetAuthorizationTokenOutput{AuthorizationData: []ecrtypes.AuthorizationData{{
		AuthorizationToken: aws.String(token),
		ProxyEndpoint:      aws.String("https://" + testAccount + ".dkr.ecr.us-east-1.amazonaws.com"),
	}}}, nil
}

// --- identity ---

type fakeIAM struct {
	roles map[string]string // name -> arn

	createCalls int
	attachCalls int
	detachCalls int
	deleteCalls int

	getErr error
}

func newFakeIAM() *fakeIAM {
	return &fakeIAM{roles: map[string]string{}}
}

func (f *fakeIAM) GetRole(ctx context.Context, in *iam.GetRoleInput, _ ...func(*iam.Options)) (*iam.GetRoleOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	name := aws.ToString(in.RoleName)
	arn, ok := f.roles[name]
	if !ok {
		return nil, &iamtypes.NoSuchEntityException{Message: aws.String("role not found")}
	}
	return &iam.GetRoleOutput{Role: &iamtypes.Role{RoleName: in.RoleName, Arn: aws.String(arn)}}, nil
}

func (f *fakeIAM) CreateRole(ctx context.Context, in *iam.CreateRoleInput, _ ...func(*iam.Options)) (*iam.CreateRoleOutput, error) {
	f.createCalls++
	name := aws.ToString(in.RoleName)
	arn := "arn:aws:iam::" + testAccount + ":role/" + name
	f.roles[name] = arn
	return &iam.CreateRoleOutput{Role: &iamtypes.Role{RoleName: in.RoleName, Arn: aws.String(arn)}}, nil
}

func (f *fakeIAM) AttachRolePolicy(ctx context.Context, in *iam.AttachRolePolicyInput, _ ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error) {
	f.attachCalls++
	return &iam.AttachRolePolicyOutput{}, nil
}

func (f *fakeIAM) DetachRolePolicy(ctx context.Context, in *iam.DetachRolePolicyInput, _ ...func(*iam.Options)) (*iam.DetachRolePolicyOutput, error) {
	f.detachCalls++
	if _, ok := f.roles[aws.ToString(in.RoleName)]; !ok {
		return nil, &iamtypes.NoSuchEntityException{Message: aws.String("role not found")}
	}
	return &iam.DetachRolePolicyOutput{}, nil
}

func (f *fakeIAM) DeleteRole(ctx context.Context, in *iam.DeleteRoleInput, _ ...func(*iam.Options)) (*iam.DeleteRoleOutput, error) {
	f.deleteCalls++
	name := aws.ToString(in.RoleName)
	if _, ok := f.roles[name]; !ok {
		return nil, &iamtypes.NoSuchEntityException{Message: aws.String("role not found")}
	}
	delete(f.roles, name)
	return &iam.DeleteRoleOutput{}, nil
}

// --- function ---

type fnRecord struct {
	arn      string
	imageURI string
	role     string
	memory   int32
	timeout  int32
}

type fakeLambda struct {
	functions   map[string]*fnRecord
	urls        map[string]string // function name -> url
	permissions map[string]bool   // statement id -> granted

	createCalls        int
	updateCodeCalls    int
	updateConfigCalls  int
	deleteCalls        int
	urlCreateCalls     int
	addPermissionCalls int

	// Errors popped by successive calls before the stateful behavior runs.
	createErrs     []error
	updateCodeErrs []error

	// calls records the order of mutating calls.
	calls []string
}

func newFakeLambda() *fakeLambda {
	return &fakeLambda{
		functions:   map[string]*fnRecord{},
		urls:        map[string]string{},
		permissions: map[string]bool{},
	}
}

func (f *fakeLambda) GetFunction(ctx context.Context, in *lambda.GetFunctionInput, _ ...func(*lambda.Options)) (*lambda.GetFunctionOutput, error) {
	name := aws.ToString(in.FunctionName)
	rec, ok := f.functions[name]
	if !ok {
		return nil, &lambdatypes.ResourceNotFoundException{Message: aws.String("function not found")}
	}
	return &lambda.GetFunctionOutput{Configuration: &lambdatypes.FunctionConfiguration{
		FunctionName: in.FunctionName,
		FunctionArn:  aws.String(rec.arn),
	}}, nil
}

func (f *fakeLambda) CreateFunction(ctx context.Context, in *lambda.CreateFunctionInput, _ ...func(*lambda.Options)) (*lambda.CreateFunctionOutput, error) {
	f.createCalls++
	f.calls = append(f.calls, "CreateFunction")
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		return nil, err
	}
	name := aws.ToString(in.FunctionName)
	rec := &fnRecord{
		arn:      "arn:aws:lambda:us-east-1:" + testAccount + ":function:" + name,
		imageURI: aws.ToString(in.Code.ImageUri),
		role:     aws.ToString(in.Role),
		memory:   aws.ToInt32(in.MemorySize),
		timeout:  aws.ToInt32(in.Timeout),
	}
	f.functions[name] = rec
	return &lambda.CreateFunctionOutput{
		FunctionName: in.FunctionName,
		FunctionArn:  aws.String(rec.arn),
	}, nil
}

func (f *fakeLambda) UpdateFunctionCode(ctx context.Context, in *lambda.UpdateFunctionCodeInput, _ ...func(*lambda.Options)) (*lambda.UpdateFunctionCodeOutput, error) {
	f.updateCodeCalls++
	f.calls = append(f.calls, "UpdateFunctionCode")
	if len(f.updateCodeErrs) > 0 {
		err := f.updateCodeErrs[0]
		f.updateCodeErrs = f.updateCodeErrs[1:]
		return nil, err
	}
	name := aws.ToString(in.FunctionName)
	rec, ok := f.functions[name]
	if !ok {
		return nil, &lambdatypes.ResourceNotFoundException{Message: aws.String("function not found")}
	}
	rec.imageURI = aws.ToString(in.ImageUri)
	return &lambda.UpdateFunctionCodeOutput{
		FunctionName: in.FunctionName,
		FunctionArn:  aws.String(rec.arn),
	}, nil
}

func (f *fakeLambda) UpdateFunctionConfiguration(ctx context.Context, in *lambda.UpdateFunctionConfigurationInput, _ ...func(*lambda.Options)) (*lambda.UpdateFunctionConfigurationOutput, error) {
	f.updateConfigCalls++
	f.calls = append(f.calls, "UpdateFunctionConfiguration")
	name := aws.ToString(in.FunctionName)
	rec, ok := f.functions[name]
	if !ok {
		return nil, &lambdatypes.ResourceNotFoundException{Message: aws.String("function not found")}
	}
	rec.role = aws.ToString(in.Role)
	rec.memory = aws.ToInt32(in.MemorySize)
	rec.timeout = aws.ToInt32(in.Timeout)
	return &lambda.UpdateFunctionConfigurationOutput{
		FunctionName: in.FunctionName,
		FunctionArn:  aws.String(rec.arn),
	}, nil
}

func (f *fakeLambda) DeleteFunction(ctx context.Context, in *lambda.DeleteFunctionInput, _ ...func(*lambda.Options)) (*lambda.DeleteFunctionOutput, error) {
	f.deleteCalls++
	name := aws.ToString(in.FunctionName)
	if _, ok := f.functions[name]; !ok {
		return nil, &lambdatypes.ResourceNotFoundException{Message: aws.String("function not found")}
	}
	delete(f.functions, name)
	return &lambda.DeleteFunctionOutput{}, nil
}

func (f *fakeLambda) GetFunctionUrlConfig(ctx context.Context, in *lambda.GetFunctionUrlConfigInput, _ ...func(*lambda.Options)) (*lambda.GetFunctionUrlConfigOutput, error) {
	url, ok := f.urls[aws.ToString(in.FunctionName)]
	if !ok {
		return nil, &lambdatypes.ResourceNotFoundException{Message: aws.String("url config not found")}
	}
	return &lambda.GetFunctionUrlConfigOutput{FunctionUrl: aws.String(url)}, nil
}

func (f *fakeLambda) CreateFunctionUrlConfig(ctx context.Context, in *lambda.CreateFunctionUrlConfigInput, _ ...func(*lambda.Options)) (*lambda.CreateFunctionUrlConfigOutput, error) {
	f.urlCreateCalls++
	f.calls = append(f.calls, "CreateFunctionUrlConfig")
	name := aws.ToString(in.FunctionName)
	url := "https://" + name + ".lambda-url.us-east-1.on.aws/"
	f.urls[name] = url
	return &lambda.CreateFunctionUrlConfigOutput{FunctionUrl: aws.String(url)}, nil
}

func (f *fakeLambda) DeleteFunctionUrlConfig(ctx context.Context, in *lambda.DeleteFunctionUrlConfigInput, _ ...func(*lambda.Options)) (*lambda.DeleteFunctionUrlConfigOutput, error) {
	name := aws.ToString(in.FunctionName)
	if _, ok := f.urls[name]; !ok {
		return nil, &lambdatypes.ResourceNotFoundException{Message: aws.String("url config not found")}
	}
	delete(f.urls, name)
	return &lambda.DeleteFunctionUrlConfigOutput{}, nil
}

func (f *fakeLambda) AddPermission(ctx context.Context, in *lambda.AddPermissionInput, _ ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error) {
	f.addPermissionCalls++
	sid := aws.ToString(in.StatementId)
	if f.permissions[sid] {
		return nil, &lambdatypes.ResourceConflictException{Message: aws.String("statement already exists")}
	}
	f.permissions[sid] = true
	return &lambda.AddPermissionOutput{}, nil
}

func (f *fakeLambda) RemovePermission(ctx context.Context, in *lambda.RemovePermissionInput, _ ...func(*lambda.Options)) (*lambda.RemovePermissionOutput, error) {
	sid := aws.ToString(in.StatementId)
	if !f.permissions[sid] {
		return nil, &lambdatypes.ResourceNotFoundException{Message: aws.String("statement not found")}
	}
	delete(f.permissions, sid)
	return &lambda.RemovePermissionOutput{}, nil
}

// --- caller identity ---

type fakeSTS struct {
	account string
	err     error
	calls   int
}

func (f *fakeSTS) GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{
		Account: aws.String(f.account),
		Arn:     aws.String("arn:aws:iam::" + f.account + ":user/dev"),
	}, nil
}

// --- container engine ---

type fakeDocker struct {
	arch   string // architecture reported by image inspect
	images map[string]bool

	pingErr   error
	removeErr error

	removeCalls int
	buildCalls  int
	tagCalls    int
	pushCalls   int

	lastBuild types.ImageBuildOptions

	containers           map[string]bool
	startCalls           int
	stopCalls            int
	containerRemoveCalls int
}

func newFakeDocker(arch string) *fakeDocker {
	return &fakeDocker{arch: arch, images: map[string]bool{}, containers: map[string]bool{}}
}

func (f *fakeDocker) Ping(ctx context.Context) (types.Ping, error) {
	return types.Ping{}, f.pingErr
}

func (f *fakeDocker) ImageRemove(ctx context.Context, imageID string, _ image.RemoveOptions) ([]image.DeleteResponse, error) {
	f.removeCalls++
	if f.removeErr != nil {
		return nil, f.removeErr
	}
	if !f.images[imageID] {
		return nil, engineNotFoundError{}
	}
	delete(f.images, imageID)
	return nil, nil
}

func (f *fakeDocker) ImageBuild(ctx context.Context, _ io.Reader, options types.ImageBuildOptions) (types.ImageBuildResponse, error) {
	f.buildCalls++
	f.lastBuild = options
	for _, tag := range options.Tags {
		f.images[tag] = true
	}
	return types.ImageBuildResponse{Body: io.NopCloser(strings.NewReader(""))}, nil
}

func (f *fakeDocker) ImageInspectWithRaw(ctx context.Context, imageID string) (types.ImageInspect, []byte, error) {
	if !f.images[imageID] {
		return types.ImageInspect{}, nil, engineNotFoundError{}
	}
	return types.ImageInspect{Architecture: f.arch, Os: "linux"}, nil, nil
}

func (f *fakeDocker) ImageTag(ctx context.Context, source, target string) error {
	f.tagCalls++
	f.images[target] = true
	return nil
}

func (f *fakeDocker) ImagePush(ctx context.Context, ref string, _ image.PushOptions) (io.ReadCloser, error) {
	f.pushCalls++
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *fakeDocker) ContainerCreate(ctx context.Context, _ *container.Config, _ *container.HostConfig, _ *network.NetworkingConfig, _ *ocispec.Platform, name string) (container.CreateResponse, error) {
	id := "ctr-" + name
	f.containers[id] = true
	return container.CreateResponse{ID: id}, nil
}

func (f *fakeDocker) ContainerStart(ctx context.Context, containerID string, _ container.StartOptions) error {
	f.startCalls++
	return nil
}

func (f *fakeDocker) ContainerStop(ctx context.Context, containerID string, _ container.StopOptions) error {
	f.stopCalls++
	return nil
}

func (f *fakeDocker) ContainerRemove(ctx context.Context, containerID string, _ container.RemoveOptions) error {
	f.containerRemoveCalls++
	delete(f.containers, containerID)
	return nil
}
