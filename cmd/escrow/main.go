package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/urfave/cli/v2"
)

var (
	escrowDataDir = btcutil.AppDataDir("escrow-cli", false)
	statePath     = filepath.Join(escrowDataDir, "state.json")
)

func main() {
	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "escrow CLI"
	app.Usage = "Command line interface for escrowd traders and operators"
	app.Commands = append(
		app.Commands,
		&config,
		&token,
		&trade,
		&registry,
		&webhook,
		&listwebhooks,
	)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

func getState() (map[string]string, error) {
	data := map[string]string{}

	file, err := os.ReadFile(statePath)
	if err != nil {
		return nil, errors.New("get config state error: try 'config init'")
	}
	if err := json.Unmarshal(file, &data); err != nil {
		return nil, fmt.Errorf("invalid config state: %w", err)
	}

	return data, nil
}

func setState(data map[string]string) error {
	if _, err := os.Stat(escrowDataDir); os.IsNotExist(err) {
		if err := os.MkdirAll(escrowDataDir, os.ModeDir|0755); err != nil {
			return err
		}
	}

	currentData := map[string]string{}
	if _, err := os.Stat(statePath); err == nil {
		if currentData, err = getState(); err != nil {
			return err
		}
	}

	mergedData := merge(currentData, data)

	jsonString, err := json.Marshal(mergedData)
	if err != nil {
		return err
	}
	if err := os.WriteFile(statePath, jsonString, 0600); err != nil {
		return fmt.Errorf("writing to file: %w", err)
	}

	return nil
}

func merge(maps ...map[string]string) map[string]string {
	merge := make(map[string]string, 0)
	for _, m := range maps {
		for k, v := range m {
			merge[k] = v
		}
	}
	return merge
}

func printRespJSON(resp interface{}) {
	jsonBytes, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		fmt.Println("unable to decode response: ", err)
		return
	}

	fmt.Println(string(jsonBytes))
}

// getClient returns a client for the daemon configured in the local state.
func getClient() (*client, error) {
	state, err := getState()
	if err != nil {
		return nil, err
	}
	address, ok := state["rpcserver"]
	if !ok || len(address) <= 0 {
		return nil, errors.New("set rpcserver with `config set rpcserver`")
	}

	return newClient(address, state["account"], []byte(state["auth_secret"])), nil
}

type invalidUsageError struct {
	ctx     *cli.Context
	command string
}

func (e *invalidUsageError) Error() string {
	return fmt.Sprintf("invalid usage of command %s", e.command)
}

func fatal(err error) {
	var e *invalidUsageError
	if errors.As(err, &e) {
		_ = cli.ShowCommandHelp(e.ctx, e.command)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "[escrow] %v\n", err)
	}
	os.Exit(1)
}
