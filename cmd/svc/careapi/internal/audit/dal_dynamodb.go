package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"

	"github.com/mzansicare/backend/libs/errors"
	"github.com/mzansicare/backend/libs/golog"
	"github.com/mzansicare/backend/libs/ptr"
)

const (
	dynamoTableNameFormat = "%s_audit_event"
	dynamoDayColumn       = "day"
	dynamoTimestampColumn = "ts"
	dynamoDataColumn      = "data"

	dynamoDayFormat = "2006-01-02"
)

// DynamoDBDAL stores audit events in DynamoDB partitioned by day so the
// summary query only scans the retention window.
type DynamoDBDAL struct {
	db        dynamodbiface.DynamoDBAPI
	tableName string
}

// NewDynamoDBDAL returns a DAL that uses DynamoDB for storage, bootstrapping
// the table if it does not exist.
func NewDynamoDBDAL(db dynamodbiface.DynamoDBAPI, env string) (*DynamoDBDAL, error) {
	d := &DynamoDBDAL{
		db:        db,
		tableName: fmt.Sprintf(dynamoTableNameFormat, env),
	}
	return d, d.verifyDynamo()
}

// Put implements DAL.Put
func (d *DynamoDBDAL) Put(event *Event) error {
	b, err := json.Marshal(event)
	if err != nil {
		return errors.Trace(err)
	}
	_, err = d.db.PutItem(&dynamodb.PutItemInput{
		TableName: &d.tableName,
		Item: map[string]*dynamodb.AttributeValue{
			dynamoDayColumn:       {S: ptr.String(event.Timestamp.UTC().Format(dynamoDayFormat))},
			dynamoTimestampColumn: {S: ptr.String(event.Timestamp.UTC().Format(time.RFC3339Nano) + "#" + event.ID)},
			dynamoDataColumn:      {B: b},
		},
	})
	return errors.Trace(err)
}

// EventsSince implements DAL.EventsSince
func (d *DynamoDBDAL) EventsSince(since time.Time) ([]*Event, error) {
	var events []*Event
	for day := since.UTC(); !day.After(time.Now().UTC()); day = day.AddDate(0, 0, 1) {
		res, err := d.db.Query(&dynamodb.QueryInput{
			TableName:              &d.tableName,
			KeyConditionExpression: ptr.String("#d = :day"),
			ExpressionAttributeNames: map[string]*string{
				"#d": ptr.String(dynamoDayColumn),
			},
			ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
				":day": {S: ptr.String(day.Format(dynamoDayFormat))},
			},
		})
		if err != nil {
			return nil, errors.Trace(err)
		}
		for _, item := range res.Items {
			ev := &Event{}
			if err := json.Unmarshal(item[dynamoDataColumn].B, ev); err != nil {
				return nil, errors.Trace(err)
			}
			if !ev.Timestamp.Before(since) {
				events = append(events, ev)
			}
		}
	}
	return events, nil
}

func (d *DynamoDBDAL) verifyDynamo() error {
	_, err := d.db.DescribeTable(&dynamodb.DescribeTableInput{
		TableName: &d.tableName,
	})
	if err != nil {
		golog.Infof(err.Error())
	}

	if awserr, ok := err.(awserr.Error); ok {
		if awserr.Code() == "ResourceNotFoundException" {
			if err := d.bootstrapDynamo(); err != nil {
				return errors.Trace(err)
			}
		} else {
			return errors.Trace(awserr.OrigErr())
		}
	} else if err != nil {
		return errors.Trace(err)
	}

	return nil
}

func (d *DynamoDBDAL) bootstrapDynamo() error {
	golog.Infof("Bootstrapping audit dynamo table...")
	if _, err := d.db.CreateTable(&dynamodb.CreateTableInput{
		TableName: &d.tableName,
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{
				AttributeName: ptr.String(dynamoDayColumn),
				AttributeType: ptr.String("S"),
			},
			{
				AttributeName: ptr.String(dynamoTimestampColumn),
				AttributeType: ptr.String("S"),
			},
		},
		KeySchema: []*dynamodb.KeySchemaElement{
			{
				AttributeName: ptr.String(dynamoDayColumn),
				KeyType:       ptr.String("HASH"),
			},
			{
				AttributeName: ptr.String(dynamoTimestampColumn),
				KeyType:       ptr.String("RANGE"),
			},
		},
		ProvisionedThroughput: &dynamodb.ProvisionedThroughput{
			ReadCapacityUnits:  ptr.Int64(10),
			WriteCapacityUnits: ptr.Int64(10),
		},
	}); err != nil {
		return errors.Trace(err)
	}
	if err := waitForTableStatus(d.db, d.tableName, "ACTIVE", time.Second, time.Minute); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func waitForTableStatus(client dynamodbiface.DynamoDBAPI, tableName, status string, delay, timeout time.Duration) error {
	start := time.Now()
	for time.Since(start) < timeout {
		res, err := client.DescribeTable(&dynamodb.DescribeTableInput{
			TableName: ptr.String(tableName),
		})
		if err != nil {
			return errors.Trace(err)
		}
		if *res.Table.TableStatus == status {
			return nil
		}
		time.Sleep(delay)
	}
	return errors.Trace(fmt.Errorf("Status %s was never reached after waiting %v", status, timeout))
}
