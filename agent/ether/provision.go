package ether

import (
	"context"

	"github.com/findy-network/findy-alice/agent/output"
	"github.com/findy-network/findy-alice/agent/storage/api"
	"github.com/golang/glog"
)

// Result tells what Provision did.
type Result struct {
	Created bool
	Failed  bool
	Keypair Keypair
}

// Provisioner makes sure that exactly one keypair record exists.
type Provisioner struct {
	Store api.RecordStore

	// Generate is Generate when nil.
	Generate func() (Keypair, error)

	// Strict stops provisioning when the record read fails. Otherwise a failed
	// read is handled like a missing record and a new keypair is created,
	// which can replace an existing one when the fault was transient.
	Strict bool
}

// Provision creates and saves the keypair record when it's absent.
// Generation and save failures are logged and returned as Result.Failed,
// they never abort the caller. Only a read failure in Strict mode returns an
// error.
func (p Provisioner) Provision(ctx context.Context) (res Result, err error) {
	found, r, err := api.Lookup(ctx, p.Store, api.RecordTypeCustom, RecordID)
	switch found {
	case api.Found:
		glog.V(1).Infoln("ether record exists, metadata keys:", len(r.Metadata))
		kp, ferr := FromRecord(r)
		if ferr != nil {
			glog.Warningln("ether record is incomplete:", ferr)
		}
		return Result{Keypair: kp}, nil
	case api.Failed:
		if p.Strict {
			glog.Errorln("ether record read failed:", err)
			return Result{Failed: true}, err
		}
		glog.Warningln("ether record read failed, creating new keypair:", err)
	}

	return p.create(ctx), nil
}

func (p Provisioner) create(ctx context.Context) Result {
	gen := p.Generate
	if gen == nil {
		gen = Generate
	}
	kp, err := gen()
	if err != nil {
		glog.Errorln(output.WalletNotCreated, err)
		return Result{Failed: true}
	}
	if err := p.Store.Save(ctx, kp.Record()); err != nil {
		glog.Errorln(output.WalletNotCreated, err)
		return Result{Failed: true}
	}
	glog.Infoln(output.WalletCreated)
	glog.V(1).Infoln("Private Key:", kp.PrivateKey)
	glog.Infoln("Address:", kp.Address)
	return Result{Created: true, Keypair: kp}
}
