// Command gentoken mints a long-lived bearer token for an automation agent.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/datec-bo/facturaflow/internal/config"
	"github.com/datec-bo/facturaflow/internal/utils"
	"github.com/google/uuid"
)

func main() {
	name := flag.String("name", "", "agent name (required)")
	id := flag.String("id", "", "agent id (defaults to a new UUID)")
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "usage: gentoken -name <agent name> [-id <agent id>]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	agentID := *id
	if agentID == "" {
		agentID = uuid.NewString()
	}

	token, err := utils.GenerateAgentToken(agentID, *name, cfg.JWTSecret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("agent_id: %s\n", agentID)
	fmt.Printf("token:    %s\n", token)
}
