package nodes

import (
	"context"
	"unicode"
	"unicode/utf16"

	"github.com/mr-tron/base58"

	"nearflow/near"
)

const (
	encodingUTF8     = "utf8"
	encodingCharCode = "charcode"
)

var signMessageDefinition = NodeDefinition{
	ID:          "near_sign_message",
	DisplayName: "Sign Message",
	Description: "Signs a message with an ed25519 private key.",
	Group:       groupNEAR,
	Parameters: []ParameterDefinition{
		paramPrivateKey,
		{Name: "message", DisplayName: "Message to Sign", Type: ParameterString, Placeholder: "Hello from nearflow", Required: true},
		{Name: "encoding", DisplayName: "Message Encoding", Type: ParameterString, Default: encodingUTF8,
			Description: "utf8 signs the UTF-8 bytes; charcode keeps the low byte of each character code"},
	},
	Example: `node sign = near_sign_message privateKey={{.privateKey}} message="hello"`,
}

type signMessageParams struct {
	PrivateKey string `param:"privateKey" validate:"required"`
	Message    string `param:"message" validate:"required"`
	Encoding   string `param:"encoding" validate:"omitempty,oneof=utf8 charcode"`
}

func NewSignMessageNode(cfg NodeConfig) (Node, error) {
	return newNearNode(cfg, signMessageDefinition, func(_ context.Context, p *signMessageParams) (map[string]any, error) {
		kp, err := near.ParseKeyPair(p.PrivateKey)
		if err != nil {
			return nil, err
		}
		sig := kp.Sign(messageBytes(p.Message, p.Encoding))
		return map[string]any{
			"signature": base58.Encode(sig.Signature),
			"publicKey": sig.PublicKey.String(),
		}, nil
	})
}

// messageBytes encodes message for signing. The charcode encoding takes the
// first UTF-16 code unit of every character and keeps its low byte.
func messageBytes(message, encoding string) []byte {
	if encoding != encodingCharCode {
		return []byte(message)
	}
	out := make([]byte, 0, len(message))
	for _, r := range message {
		unit := r
		if r1, _ := utf16.EncodeRune(r); r1 != unicode.ReplacementChar {
			unit = r1
		}
		out = append(out, byte(unit))
	}
	return out
}

func init() {
	def := signMessageDefinition
	def.Factory = NewSignMessageNode
	RegisterNode(def)
}
