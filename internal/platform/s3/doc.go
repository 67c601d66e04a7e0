// Package s3 manages the Hopsworks data bucket on Amazon S3.
//
// The installer creates a versioned bucket tagged with the cluster name;
// the EKS teardown finds buckets by that tag, empties every object version
// and deletes them.
package s3
