package analytics

// UnmappedSegment is used when a cluster index has no entry in the mapping.
const UnmappedSegment = "Unmapped"

// SegmentAssignment ties a customer to a cluster and its mapped segment name.
// Cluster indices are only meaningful together with the segmentation model
// that produced them.
type SegmentAssignment struct {
	CustomerID   string `json:"customer_id"`
	ClusterIndex int    `json:"cluster_index"`
	SegmentName  string `json:"segment_name"`
}

// ClusteredCustomer is one row of the clustered-customers output.
type ClusteredCustomer struct {
	CustomerFeatureVector
	ClusterIndex int    `json:"cluster"`
	SegmentName  string `json:"segment"`
}

func (c ClusteredCustomer) Assignment() SegmentAssignment {
	return SegmentAssignment{CustomerID: c.CustomerID, ClusterIndex: c.ClusterIndex, SegmentName: c.SegmentName}
}
