package fakestore_client

import (
	"github.com/mcdev12/pricegame/go/clients"
)

type FakeStoreClient struct {
	*clients.BaseClient
}

// NewFakeStoreClient creates a catalog client; an empty baseURL uses the public API.
func NewFakeStoreClient(baseURL string) *FakeStoreClient {
	if baseURL == "" {
		baseURL = BaseURL
	}
	client := &FakeStoreClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}

	client.SetHeader(AcceptHeader, JsonContentType)

	return client
}
