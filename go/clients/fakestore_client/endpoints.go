package fakestore_client

const (
	// Base URL
	BaseURL = "https://fakestoreapi.com"

	// API Endpoints
	ProductsEndpoint = "/products"

	// Headers
	AcceptHeader    = "Accept"
	JsonContentType = "application/json"
)
