package main

// General API documentation for swaggo. Generate docs with `swag init`, then
// build with -tags=swagger to serve them under /swagger/.
//
// @title           modelrepo API
// @version         1.0
// @description     HTTP API for the model repository manager: poll-based
// @description     repository sync, explicit load/unload, and dependency
// @description     graph status queries.
//
// @contact.name   modelrepo maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
