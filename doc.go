// Package searchrev attributes purchase revenue in a web analytics hit feed to
// the external search engine and search keyword which referred the visitor.
//
// The pipeline has four stages, each of which is a pure function over the
// output of the previous one.
//
// 1. Reader
//
//    A Reader turns the tab separated hit feed into typed HitRecords. The
//    schema is fixed: the header must name the twelve columns in Columns, in
//    order, and every row must carry exactly twelve fields. The visitor key
//    (ip) and hit time are required, everything else may be empty. Any
//    Source, such as the Kafka source in the kafka sub-package, can stand in
//    for a Reader.
//
// 2. Extractors
//
//    The RevenueExtractor decodes the product list of purchase hits and sums
//    line item revenue in exact decimal arithmetic. Independently, the
//    ReferrerClassifier keeps hits whose referrer host is outside the site's
//    own domains, and the KeywordExtractor pulls the search term out of those
//    referrers. The two branches only read the collected hits, so the
//    Pipeline may run them concurrently.
//
// 3. Join
//
//    Join performs an inner join of the three derived relations on visitor
//    key, fanning out when a key repeats. Keys are interned through a
//    Translator, which may be in memory or backed by leveldb or boltdb (see
//    the sub-packages of the same names).
//
// 4. Aggregate
//
//    Aggregate groups the joined rows by (search engine domain, keyword),
//    sums their revenue, and orders the groups by revenue, highest first.
//    Groups with equal revenue keep the order in which they were first seen.
//
// The resulting report can be written as TSV or Avro to any ObjectStore (the
// local file system in package file, S3 in package aws/s3), or handed to one
// of the database sinks in packages clickhouse and pilosa.
package searchrev
