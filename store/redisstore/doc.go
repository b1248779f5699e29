// Package redisstore is a [goAccount.UserStore] backed by Redis.
//
// Each user is one JSON value under <prefix>:u:<id>. Secondary indexes map
// the email, the refresh-token hash and the reset-token hash to the id:
//
//	<prefix>:ue:<email>   -> id
//	<prefix>:ur:<hash>    -> id
//	<prefix>:ux:<hash>    -> id
//
// Every mutation runs under WATCH and commits the record together with its
// index changes in one MULTI/EXEC, retrying on contention.
package redisstore
