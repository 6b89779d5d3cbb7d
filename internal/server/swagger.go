package server

//go:generate swag init -g internal/server/swagger.go -o docs

// @title Webgrade API
// @version 2.3.0
// @description Interactive documentation for the Webgrade page-audit API.
// @contact.name Webgrade Maintainers
// @contact.url https://github.com/webgrade/webgrade
// @BasePath /
