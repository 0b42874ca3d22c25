package kami

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/0xxfu/prompting/internal/config"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Kami) {
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	kc := &config.KamiEnvConfig{
		KamiHost: ts.Listener.Addr().(*net.TCPAddr).IP.String(),
		KamiPort: fmt.Sprint(ts.Listener.Addr().(*net.TCPAddr).Port),
	}
	k, err := NewKami(kc)
	if err != nil {
		t.Fatalf("new kami: %v", err)
	}
	k.BaseURL = ts.URL
	k.client.SetBaseURL(ts.URL)
	k.client.SetRetryCount(0)
	return ts, k
}

func TestNewKami_NilConfig(t *testing.T) {
	_, err := NewKami(nil)
	if err == nil {
		t.Fatalf("expected error when cfg is nil")
	}
}

func TestGetMetagraph_Success(t *testing.T) {
	payload := `{"statusCode":200,"success":true,"data":{"netuid":1,"name":"apex","block":120,"hotkeys":["hk0","hk1"],"coldkeys":["ck0","ck1"],"axons":[{"ip":"10.0.0.1","port":8091},{"ip":"10.0.0.2","port":8092}],"active":[true,true],"validatorPermit":[true,false],"alphaStake":[20000,10],"taoStake":[0,0],"totalStake":[20000,10]},"error":null}`
	_, k := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chain/subnet-metagraph/1" || r.Method != http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(payload))
	})

	res, err := k.GetMetagraph(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetMetagraph error: %v", err)
	}
	if res.Data.Netuid != 1 || len(res.Data.Hotkeys) != 2 {
		t.Fatalf("unexpected response: %+v", res)
	}

	axon := FindAxonByHotkey(&res.Data, "hk1")
	if axon == nil || axon.Port != 8092 {
		t.Fatalf("unexpected axon: %+v", axon)
	}
	if FindAxonByHotkey(&res.Data, "missing") != nil {
		t.Fatalf("expected nil axon for unknown hotkey")
	}
}

func TestGetLatestBlock_Success(t *testing.T) {
	_, k := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chain/latest-block" || r.Method != http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"statusCode":200,"success":true,"data":{"parentHash":"0x1","blockNumber":1,"stateRoot":"0x2","extrinsicsRoot":"0x3"},"error":null}`))
	})

	res, err := k.GetLatestBlock(context.Background())
	if err != nil {
		t.Fatalf("GetLatestBlock error: %v", err)
	}
	if res.Data.BlockNumber != 1 {
		t.Fatalf("unexpected response: %+v", res)
	}
}

func TestGetLatestBlock_HTTPError(t *testing.T) {
	_, k := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad"))
	})
	_, err := k.GetLatestBlock(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestGetLatestBlock_ResponseErrorField(t *testing.T) {
	_, k := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"statusCode":200,"success":false,"data":{},"error":{"msg":"boom"}}`))
	})
	_, err := k.GetLatestBlock(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestGetHotkey(t *testing.T) {
	_, k := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/substrate/keyring-pair-info" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"statusCode":200,"success":true,"data":{"keyringPair":{"address":"addr","isLocked":false,"meta":{},"publicKey":{},"type":"sr25519"},"walletColdkey":"cold"},"error":null}`))
	})

	hotkey, err := GetHotkey(context.Background(), k)
	if err != nil || hotkey != "addr" {
		t.Fatalf("keyring unexpected: %v %q", err, hotkey)
	}
}
