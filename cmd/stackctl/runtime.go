// File: cmd/stackctl/runtime.go
// Brief: Shared wiring from flags to a ready reconciliation driver.

package main

import (
	"github.com/example/stackctl/internal/kube"
	"github.com/example/stackctl/internal/logging"
	"github.com/example/stackctl/internal/reconcile"
	"github.com/example/stackctl/internal/stack"
)

// buildDriver connects the kubeconfig-derived clients, the structured
// logger, and the reconciliation driver a command needs.
func buildDriver(kubeconfigPath, kubeContext, logLevel string) (*reconcile.Driver, *kube.Client, error) {
	logger, err := logging.New(logLevel)
	if err != nil {
		return nil, nil, err
	}
	client, err := kube.New(kubeconfigPath, kubeContext)
	if err != nil {
		return nil, nil, err
	}
	access := kube.NewAccess(client.Dynamic, client.RESTMapper, client.Namespace)
	driver := reconcile.New(access, logger.WithName("reconcile"), reconcile.Options{
		DefaultNamespace: client.Namespace,
	})
	return driver, client, nil
}

// loadStack resolves the stack name from the optional positional argument
// and reads the declared documents from --filename.
func loadStack(args []string, filePath string) (*stack.Stack, error) {
	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	return stack.Load(name, filePath)
}
