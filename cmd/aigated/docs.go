package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           aigated API
// @version         1.0
// @description     HTTP gateway for model lifecycle and admission control.
//
// @contact.name   aigated maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
//
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
