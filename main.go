package main

import (
	"fmt"
	"os"

	"certregistry/config"
	"certregistry/contract"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("certregistry.main")

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Error loading configuration: " + err.Error())
	}
	flogging.ActivateSpec(cfg.LogSpec)

	cc, err := contractapi.NewChaincode(contract.NewCertificateRegistryContract(cfg.Retention))
	if err != nil {
		panic("Error creating CertificateRegistryContract: " + err.Error())
	}

	if cfg.ServerAddress == "" {
		if err := cc.Start(); err != nil {
			panic("Error starting chaincode: " + err.Error())
		}
		return
	}

	server, err := newChaincodeServer(cfg, cc)
	if err != nil {
		panic("Error configuring chaincode server: " + err.Error())
	}
	logger.Infof("Starting chaincode service %s on %s", cfg.ID, cfg.ServerAddress)
	if err := server.Start(); err != nil {
		panic("Error starting chaincode server: " + err.Error())
	}
}

// newChaincodeServer builds the chaincode-as-a-service listener.
func newChaincodeServer(cfg config.Chaincode, cc shim.Chaincode) (*shim.ChaincodeServer, error) {
	tlsProps := shim.TLSProperties{Disabled: cfg.TLS.Disabled}
	if !cfg.TLS.Disabled {
		key, err := os.ReadFile(cfg.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read TLS key: %w", err)
		}
		cert, err := os.ReadFile(cfg.TLS.CertFile)
		if err != nil {
			return nil, fmt.Errorf("read TLS cert: %w", err)
		}
		tlsProps.Key = key
		tlsProps.Cert = cert
		if cfg.TLS.ClientCAFile != "" {
			ca, err := os.ReadFile(cfg.TLS.ClientCAFile)
			if err != nil {
				return nil, fmt.Errorf("read client CA cert: %w", err)
			}
			tlsProps.ClientCACerts = ca
		}
	}

	return &shim.ChaincodeServer{
		CCID:     cfg.ID,
		Address:  cfg.ServerAddress,
		CC:       cc,
		TLSProps: tlsProps,
	}, nil
}
