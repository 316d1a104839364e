// Package console is an interactive front end to a registry speaking a
// subset of the PandA text protocol.
//
// Single values are answered "OK =value", multi-line results as rows
// prefixed "!" and closed by ".", writes with "OK" and failures with
// "ERR message".
package console
