package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// ErrParameterNotFound is returned when SSM has no parameter with the
// requested name.
var ErrParameterNotFound = errors.New("paramstore: parameter not found")

// ssmAPI is the minimal AWS SSM interface required by Client.
// *ssm.Client from aws-sdk-go-v2 satisfies this interface.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	GetParametersByPath(ctx context.Context, in *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
}

// Getter is the interface that wraps GetParameter.
// Consumers (the bot catalog, the fulfillment client) depend on this
// interface rather than the concrete *Client.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client wraps an AWS SSM API for parameter retrieval.
type Client struct {
	api ssmAPI
}

// New creates a Client with the given SSM API implementation.
func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Client{api: api}, nil
}

func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	if c.api == nil {
		return "", errors.New("paramstore: client not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}

	withDecryption := true
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%w: %q", ErrParameterNotFound, name)
		}
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", errors.New("paramstore: parameter missing value")
	}
	return *out.Parameter.Value, nil
}

// Definition is one bot alias definition stored under a prefix.
type Definition struct {
	Bot   string
	Alias string
	Raw   string
}

// BotDefinitionName returns the parameter holding the definition of a bot
// alias: <prefix>/bots/<bot>/<alias>.
func BotDefinitionName(prefix, bot, alias string) string {
	return strings.TrimRight(strings.TrimSpace(prefix), "/") + "/bots/" + bot + "/" + alias
}

// BotDefinition fetches the raw YAML or JSON definition of a bot alias.
func (c *Client) BotDefinition(ctx context.Context, prefix, bot, alias string) (string, error) {
	if strings.TrimSpace(bot) == "" || strings.TrimSpace(alias) == "" {
		return "", errors.New("paramstore: bot and alias are required")
	}
	return c.GetParameter(ctx, BotDefinitionName(prefix, bot, alias))
}

// BotDefinitions reads every definition stored under <prefix>/bots. Parameters
// deeper or shallower than <bot>/<alias> are skipped.
func (c *Client) BotDefinitions(ctx context.Context, prefix string) ([]Definition, error) {
	if c.api == nil {
		return nil, errors.New("paramstore: client not initialized")
	}
	root := strings.TrimRight(strings.TrimSpace(prefix), "/") + "/bots"
	recursive, withDecryption := true, true
	pages := ssm.NewGetParametersByPathPaginator(c.api, &ssm.GetParametersByPathInput{
		Path:           &root,
		Recursive:      &recursive,
		WithDecryption: &withDecryption,
	})

	var defs []Definition
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("paramstore: list %s: %w", root, err)
		}
		for _, p := range page.Parameters {
			if p.Name == nil || p.Value == nil {
				continue
			}
			rest, ok := strings.CutPrefix(*p.Name, root+"/")
			if !ok {
				continue
			}
			bot, alias, ok := strings.Cut(rest, "/")
			if !ok || bot == "" || alias == "" || strings.Contains(alias, "/") {
				continue
			}
			defs = append(defs, Definition{Bot: bot, Alias: alias, Raw: *p.Value})
		}
	}
	return defs, nil
}
