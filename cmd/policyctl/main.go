package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/sshgate/policy-governance-backend/api/clients"
	"github.com/sshgate/policy-governance-backend/cmd/flags"
	"github.com/sshgate/policy-governance-backend/codec"
	"github.com/sshgate/policy-governance-backend/httpserver"
)

var policyIDFlag = &cli.StringFlag{
	Name:     "policy-id",
	Required: true,
	Usage:    "policy request identifier",
}

func main() {
	app := &cli.App{
		Name:  "policyctl",
		Usage: "Operator CLI for the policy governance API",
		Flags: []cli.Flag{flags.ServerURLFlag},
		Commands: []*cli.Command{
			{
				Name:  "new-request",
				Usage: "Build a development signed request blob (stub codec) and print it base64-encoded",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true, Usage: "unique request id"},
					&cli.StringFlag{Name: "policy-file", Required: true, Usage: "file with the policy payload"},
					&cli.StringSliceFlag{Name: "approver", Usage: "approver id to embed a signature share for (repeatable)"},
				},
				Action: runNewRequest,
			},
			{
				Name:  "create",
				Usage: "Submit a signed request blob as a new pending policy",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "request-file", Required: true, Usage: "file with the base64-encoded signed request blob"},
					&cli.StringFlag{Name: "role", Required: true, Usage: "access-control role the policy governs"},
					&cli.IntFlag{Name: "threshold", Value: 1, Usage: "required number of approvals"},
					&cli.StringFlag{Name: "requested-by", Required: true, Usage: "creator id"},
					&cli.StringFlag{Name: "email", Usage: "creator email"},
				},
				Action: runCreate,
			},
			{
				Name:   "list",
				Usage:  "List pending policies",
				Action: runList,
			},
			{
				Name:   "get",
				Usage:  "Show a policy with its votes",
				Flags:  []cli.Flag{policyIDFlag},
				Action: runGet,
			},
			{
				Name:  "vote",
				Usage: "Cast an approval or rejection",
				Flags: []cli.Flag{
					policyIDFlag,
					&cli.StringFlag{Name: "voter", Required: true, Usage: "voter id"},
					&cli.StringFlag{Name: "email", Usage: "voter email"},
					&cli.BoolFlag{Name: "reject", Usage: "record a rejection instead of an approval"},
					&cli.StringFlag{Name: "request-file", Usage: "file with the re-signed blob (required for approvals)"},
				},
				Action: runVote,
			},
			{
				Name:  "revoke",
				Usage: "Withdraw a previously cast vote",
				Flags: []cli.Flag{
					policyIDFlag,
					&cli.StringFlag{Name: "voter", Required: true, Usage: "voter id"},
				},
				Action: runRevoke,
			},
			{
				Name:  "cancel",
				Usage: "Cancel a pending policy",
				Flags: []cli.Flag{
					policyIDFlag,
					&cli.StringFlag{Name: "email", Usage: "actor email"},
				},
				Action: runCancel,
			},
			{
				Name:  "commit",
				Usage: "Commit an approved policy, producing the artifact for its role",
				Flags: []cli.Flag{
					policyIDFlag,
					&cli.StringFlag{Name: "email", Usage: "actor email"},
					&cli.StringFlag{Name: "signature-file", Usage: "file with the external signature"},
				},
				Action: runCommit,
			},
			{
				Name:   "audit",
				Usage:  "Show the transition audit trail of a policy",
				Flags:  []cli.Flag{policyIDFlag},
				Action: runAudit,
			},
			{
				Name:  "role-policy",
				Usage: "Fetch and decode the committed policy artifact for a role",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "role", Required: true, Usage: "access-control role"},
				},
				Action: runRolePolicy,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newClient(cCtx *cli.Context) *clients.PolicyClient {
	return clients.NewPolicyClient(cCtx.String(flags.ServerURLFlag.Name))
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// readBlobFile reads a base64-encoded blob file as produced by new-request.
func readBlobFile(path string) ([]byte, error) {
	encoded, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	blob, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil {
		return nil, fmt.Errorf("file %s is not base64-encoded: %w", path, err)
	}
	return blob, nil
}

func runNewRequest(cCtx *cli.Context) error {
	payload, err := os.ReadFile(cCtx.String("policy-file"))
	if err != nil {
		return err
	}

	blob, err := codec.NewStubRequest(cCtx.String("id"), payload)
	if err != nil {
		return err
	}
	for _, approver := range cCtx.StringSlice("approver") {
		blob, err = codec.AddStubApproval(blob, approver)
		if err != nil {
			return err
		}
	}

	fmt.Println(base64.StdEncoding.EncodeToString(blob))
	return nil
}

func runCreate(cCtx *cli.Context) error {
	blob, err := readBlobFile(cCtx.String("request-file"))
	if err != nil {
		return err
	}

	policy, err := newClient(cCtx).CreatePolicy(cCtx.Context, httpserver.CreatePolicyRequest{
		RequestData:      blob,
		RoleID:           cCtx.String("role"),
		Threshold:        cCtx.Int("threshold"),
		RequestedBy:      cCtx.String("requested-by"),
		RequestedByEmail: cCtx.String("email"),
	})
	if err != nil {
		return err
	}
	return printJSON(policy)
}

func runList(cCtx *cli.Context) error {
	policies, err := newClient(cCtx).ListPolicies(cCtx.Context)
	if err != nil {
		return err
	}
	return printJSON(policies)
}

func runGet(cCtx *cli.Context) error {
	policy, err := newClient(cCtx).GetPolicy(cCtx.Context, cCtx.String(policyIDFlag.Name))
	if err != nil {
		return err
	}
	return printJSON(policy)
}

func runVote(cCtx *cli.Context) error {
	approve := !cCtx.Bool("reject")

	var blob []byte
	if requestFile := cCtx.String("request-file"); requestFile != "" {
		var err error
		blob, err = readBlobFile(requestFile)
		if err != nil {
			return err
		}
	} else if approve {
		return fmt.Errorf("approvals require --request-file with the re-signed blob")
	}

	tally, err := newClient(cCtx).Vote(cCtx.Context, cCtx.String(policyIDFlag.Name), httpserver.VoteRequest{
		VoterID:     cCtx.String("voter"),
		VoterEmail:  cCtx.String("email"),
		Approve:     approve,
		RequestData: blob,
	})
	if err != nil {
		return err
	}
	return printJSON(tally)
}

func runRevoke(cCtx *cli.Context) error {
	tally, err := newClient(cCtx).RevokeVote(cCtx.Context, cCtx.String(policyIDFlag.Name), cCtx.String("voter"))
	if err != nil {
		return err
	}
	return printJSON(tally)
}

func runCancel(cCtx *cli.Context) error {
	if err := newClient(cCtx).Cancel(cCtx.Context, cCtx.String(policyIDFlag.Name), cCtx.String("email")); err != nil {
		return err
	}
	fmt.Println("cancelled")
	return nil
}

func runCommit(cCtx *cli.Context) error {
	var signature []byte
	if sigFile := cCtx.String("signature-file"); sigFile != "" {
		var err error
		signature, err = os.ReadFile(sigFile)
		if err != nil {
			return err
		}
	}

	if err := newClient(cCtx).Commit(cCtx.Context, cCtx.String(policyIDFlag.Name), httpserver.CommitRequest{
		ActorEmail: cCtx.String("email"),
		Signature:  signature,
	}); err != nil {
		return err
	}
	fmt.Println("committed")
	return nil
}

func runAudit(cCtx *cli.Context) error {
	entries, err := newClient(cCtx).AuditTrail(cCtx.Context, cCtx.String(policyIDFlag.Name))
	if err != nil {
		return err
	}
	return printJSON(entries)
}

func runRolePolicy(cCtx *cli.Context) error {
	artifact, err := newClient(cCtx).RolePolicy(cCtx.Context, cCtx.String("role"))
	if err != nil {
		return err
	}

	return printJSON(map[string]any{
		"role_id":   string(artifact.RoleID),
		"threshold": artifact.Threshold,
		"policy":    string(artifact.Policy),
		"signature": base64.StdEncoding.EncodeToString(artifact.Signature),
	})
}
