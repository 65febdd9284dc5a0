/*

Process of compilation

Program Text ->
	tokenize (lex) ->
Tokens ->
	parse, resolve scopes, annotate types (front) ->
Abstract Syntax Tree (ast) ->
	lay out frames, generate code (back) ->
Assembly Text ->
	assemble and link (cc) ->
Binary Executable

*/
package compiler
