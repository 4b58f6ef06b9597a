// Package dynamodb provides the DynamoDB-backed task store.
//
// # Overview
//
// The package uses a single-table DynamoDB design. Every task is one item,
// keyed by its owner (partition key, "PK") and its id (sort key, "SK"):
//
//   - PK:    #<owner>
//   - SK:    #<task id>
//
// One Global Secondary Index, [GSI1], serves the per-status listings. Its
// partition key embeds the status, so every owner has one index partition
// per status:
//
//   - GS1PK: #<owner>#<status>
//   - GS1SK: #<write time, ISO-8601 UTC>
//
// Closing a task is a full overwrite of the item with the same primary key.
// DynamoDB maintains the index on write, so the overwrite moves the item from
// the OPEN index partition to the CLOSED one without an explicit delete.
//
// # Getting Started
//
// Create a [Client] with [New], supplying an AWS config, the table name, and
// any [Option] values you need, then call [Client.Connect] once:
//
//	client := dynamodb.New(
//	    &awsCfg,
//	    tableName,
//	    dynamodb.WithEndpoint("http://localhost:8000"),
//	)
//	if err := client.Connect(); err != nil {
//	    return err
//	}
//
// By default, [Client.Connect] creates an AWS SDK v2 DynamoDB client from the
// supplied [aws.Config]. Supply [WithAPI] to inject a custom or mock
// implementation.
//
// # Consistency
//
// [Client.GetByID] reads the base table. [Client.ListOpen] and
// [Client.ListClosed] read the index, which is eventually consistent: a task
// written by [Client.Add] may briefly be missing from, or still present in,
// a status listing.
//
// # Concurrency
//
// [Client] is safe for concurrent use by multiple goroutines once
// [Client.Connect] has returned. Concurrent writes of the same task are last
// write wins.
package dynamodb
