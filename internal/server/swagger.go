package server

import _ "embed"

//go:generate swag init -g internal/server/server.go -o internal/server --outputTypes json --instanceName doc

// @title TubeGate API
// @version 0.1
// @description Interactive documentation for the TubeGate download gateway API surface.
// @contact.name TubeGate Maintainers
// @contact.url https://github.com/tubegate/tubegate
// @BasePath /

//go:embed doc.json
var swaggerDoc []byte
