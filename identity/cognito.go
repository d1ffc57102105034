package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/account"
)

var (
	// ErrAuthenticationFailed means the provider rejected the username/password pair.
	ErrAuthenticationFailed = errors.New("identity: authentication failed")
	// ErrUserExists means a provider account already exists for the username.
	ErrUserExists = errors.New("identity: user already exists")
	// ErrMissingSubject means the provider account has no "sub" attribute.
	ErrMissingSubject = errors.New("identity: subject attribute missing")
	// ErrNotConfigured is returned by [NewCognito] for an incomplete [Config].
	ErrNotConfigured = errors.New("identity: cognito configuration incomplete")
)

// Group names that roles map to.
const (
	GroupAdmin     = "Admin_users"
	GroupClubOwner = "ClubOwner_users"
	GroupMember    = "Member_users"
)

type cognitoAPI interface {
	AdminGetUser(ctx context.Context, params *cip.AdminGetUserInput, optFns ...func(*cip.Options)) (*cip.AdminGetUserOutput, error)
	AdminCreateUser(ctx context.Context, params *cip.AdminCreateUserInput, optFns ...func(*cip.Options)) (*cip.AdminCreateUserOutput, error)
	AdminSetUserPassword(ctx context.Context, params *cip.AdminSetUserPasswordInput, optFns ...func(*cip.Options)) (*cip.AdminSetUserPasswordOutput, error)
	AdminAddUserToGroup(ctx context.Context, params *cip.AdminAddUserToGroupInput, optFns ...func(*cip.Options)) (*cip.AdminAddUserToGroupOutput, error)
	AdminDeleteUser(ctx context.Context, params *cip.AdminDeleteUserInput, optFns ...func(*cip.Options)) (*cip.AdminDeleteUserOutput, error)
	InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
}

// Config identifies the user pool and app client.
type Config struct {
	Region       string
	UserPoolID   string
	ClientID     string
	ClientSecret string

	// Optional static credentials. When empty the default AWS chain is used.
	AccessKeyID     string
	SecretAccessKey string
}

// Cognito is the identity provider adapter over an AWS Cognito user pool.
type Cognito struct {
	api    cognitoAPI
	config Config
}

// NewCognito loads AWS configuration and returns an adapter for the pool.
func NewCognito(ctx context.Context, cfg Config) (*Cognito, error) {
	if cfg.Region == "" || cfg.UserPoolID == "" || cfg.ClientID == "" {
		return nil, ErrNotConfigured
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Cognito{api: cip.NewFromConfig(awsCfg), config: cfg}, nil
}

func newCognitoWithAPI(api cognitoAPI, cfg Config) *Cognito {
	return &Cognito{api: api, config: cfg}
}

// Issuer is the "iss" claim of tokens minted by the pool.
func (c *Cognito) Issuer() string {
	return Issuer(c.config.Region, c.config.UserPoolID)
}

// JWKSURL is where the pool publishes its signing keys.
func (c *Cognito) JWKSURL() string {
	return c.Issuer() + "/.well-known/jwks.json"
}

// Issuer returns the pool issuer URL for region and pool.
func Issuer(region, userPoolID string) string {
	return "https://cognito-idp." + region + ".amazonaws.com/" + userPoolID
}

// UserExists reports whether the pool has an account under username.
func (c *Cognito) UserExists(ctx context.Context, username string) (bool, error) {
	_, err := c.api.AdminGetUser(ctx, &cip.AdminGetUserInput{
		UserPoolId: aws.String(c.config.UserPoolID),
		Username:   aws.String(username),
	})
	if err != nil {
		var notFound *types.UserNotFoundException
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("admin get user: %w", err)
	}
	return true, nil
}

// CreateUser provisions a pre-verified account with a permanent password and
// returns its subject. Welcome messages are suppressed. If any step after the
// account is created fails, the account is deleted again so a retry can start
// from scratch.
func (c *Cognito) CreateUser(ctx context.Context, username, password, displayName string, isPhone bool) (sub string, err error) {
	attrs := []types.AttributeType{
		{Name: aws.String("email"), Value: aws.String(username)},
		{Name: aws.String("email_verified"), Value: aws.String("true")},
	}
	if isPhone {
		attrs = []types.AttributeType{
			{Name: aws.String("phone_number"), Value: aws.String(username)},
			{Name: aws.String("phone_number_verified"), Value: aws.String("true")},
		}
	}
	attrs = append(attrs, types.AttributeType{Name: aws.String("name"), Value: aws.String(displayName)})

	_, err = c.api.AdminCreateUser(ctx, &cip.AdminCreateUserInput{
		UserPoolId:     aws.String(c.config.UserPoolID),
		Username:       aws.String(username),
		MessageAction:  types.MessageActionTypeSuppress,
		UserAttributes: attrs,
	})
	if err != nil {
		var exists *types.UsernameExistsException
		if errors.As(err, &exists) {
			return "", ErrUserExists
		}
		return "", fmt.Errorf("admin create user: %w", err)
	}

	defer func() {
		if err == nil {
			return
		}
		if delErr := c.DeleteUser(context.WithoutCancel(ctx), username); delErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", delErr))
		}
	}()

	if err = c.SetPassword(ctx, username, password); err != nil {
		return "", err
	}

	out, err := c.api.AdminGetUser(ctx, &cip.AdminGetUserInput{
		UserPoolId: aws.String(c.config.UserPoolID),
		Username:   aws.String(username),
	})
	if err != nil {
		return "", fmt.Errorf("admin get user: %w", err)
	}
	for _, attr := range out.UserAttributes {
		if aws.ToString(attr.Name) == "sub" && aws.ToString(attr.Value) != "" {
			return aws.ToString(attr.Value), nil
		}
	}
	return "", ErrMissingSubject
}

// SetPassword replaces the account password with a permanent one.
func (c *Cognito) SetPassword(ctx context.Context, username, password string) error {
	_, err := c.api.AdminSetUserPassword(ctx, &cip.AdminSetUserPasswordInput{
		UserPoolId: aws.String(c.config.UserPoolID),
		Username:   aws.String(username),
		Password:   aws.String(password),
		Permanent:  true,
	})
	if err != nil {
		return fmt.Errorf("admin set user password: %w", err)
	}
	return nil
}

// Authenticate runs USER_PASSWORD_AUTH and returns the session tokens.
func (c *Cognito) Authenticate(ctx context.Context, username, password string) (account.Tokens, error) {
	params := map[string]string{
		"USERNAME": username,
		"PASSWORD": password,
	}
	if c.config.ClientSecret != "" {
		params["SECRET_HASH"] = SecretHash(c.config.ClientSecret, username, c.config.ClientID)
	}

	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserPasswordAuth,
		ClientId:       aws.String(c.config.ClientID),
		AuthParameters: params,
	})
	if err != nil {
		var (
			notAuthorized *types.NotAuthorizedException
			notFound      *types.UserNotFoundException
			notConfirmed  *types.UserNotConfirmedException
			resetRequired *types.PasswordResetRequiredException
		)
		if errors.As(err, &notAuthorized) || errors.As(err, &notFound) ||
			errors.As(err, &notConfirmed) || errors.As(err, &resetRequired) {
			return account.Tokens{}, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
		}
		return account.Tokens{}, fmt.Errorf("initiate auth: %w", err)
	}
	if out.AuthenticationResult == nil {
		// A challenge (e.g. NEW_PASSWORD_REQUIRED) is not a completed login.
		return account.Tokens{}, ErrAuthenticationFailed
	}

	res := out.AuthenticationResult
	return account.Tokens{
		AccessToken:  aws.ToString(res.AccessToken),
		IDToken:      aws.ToString(res.IdToken),
		RefreshToken: aws.ToString(res.RefreshToken),
		ExpiresIn:    res.ExpiresIn,
	}, nil
}

// AddUserToGroup puts the account in the group for role.
func (c *Cognito) AddUserToGroup(ctx context.Context, username, role string) error {
	_, err := c.api.AdminAddUserToGroup(ctx, &cip.AdminAddUserToGroupInput{
		UserPoolId: aws.String(c.config.UserPoolID),
		Username:   aws.String(username),
		GroupName:  aws.String(GroupForRole(role)),
	})
	if err != nil {
		return fmt.Errorf("admin add user to group: %w", err)
	}
	return nil
}

// DeleteUser removes the account. A missing account is not an error.
func (c *Cognito) DeleteUser(ctx context.Context, username string) error {
	_, err := c.api.AdminDeleteUser(ctx, &cip.AdminDeleteUserInput{
		UserPoolId: aws.String(c.config.UserPoolID),
		Username:   aws.String(username),
	})
	if err != nil {
		var notFound *types.UserNotFoundException
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("admin delete user: %w", err)
	}
	return nil
}

// GroupForRole maps a local role name to its pool group.
func GroupForRole(role string) string {
	switch role {
	case account.RoleAdmin:
		return GroupAdmin
	case account.RoleClubOwner:
		return GroupClubOwner
	default:
		return GroupMember
	}
}

// SecretHash computes base64(HMAC-SHA256(clientSecret, username+clientID)).
func SecretHash(clientSecret, username, clientID string) string {
	mac := hmac.New(sha256.New, []byte(clientSecret))
	mac.Write([]byte(username + clientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
