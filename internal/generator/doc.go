// Package generator submits builds to an rdgen server and checks on them.
//
// The server endpoints used are:
//
//	POST {base}/generator                                   start a build
//	GET  {base}/check_for_file?filename=&uuid=&platform=    build status page
//	GET  {base}/download?filename=&uuid=                    artifact
//
// The generator and status responses are HTML meant for people; package
// scrape extracts the state from them.
package generator
