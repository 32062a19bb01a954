// vassal-client drives a running vassal server with the real AWS SDK, the
// same way a developer would point their application at Vassal instead of
// a live SQS endpoint. It doubles as a manual smoke test.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
)

func main() {
	endpoint := flag.String("endpoint", "http://localhost:8080", "vassal server base URL")
	flag.Parse()

	sess, err := session.NewSession(&aws.Config{
		Region:                         aws.String("us-east-1"),
		Endpoint:                       aws.String(*endpoint),
		Credentials:                    credentials.NewStaticCredentials("dummy", "dummy", ""),
		DisableRestProtocolURICleaning: aws.Bool(true),
	})
	if err != nil {
		log.Fatalf("failed to create session: %v", err)
	}

	client := sqs.New(sess)

	queueName := "smoke-test-queue"
	created, err := client.CreateQueue(&sqs.CreateQueueInput{
		QueueName: aws.String(queueName),
		Attributes: map[string]*string{
			"VisibilityTimeout": aws.String("30"),
		},
	})
	if err != nil {
		log.Fatalf("failed to create queue: %v", err)
	}
	queueURL := *created.QueueUrl
	fmt.Printf("created queue: %s\n", queueURL)

	sent, err := client.SendMessage(&sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String("hello from vassal-client"),
	})
	if err != nil {
		log.Fatalf("failed to send message: %v", err)
	}
	fmt.Printf("sent message: %s\n", *sent.MessageId)

	received, err := client.ReceiveMessage(&sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(queueURL),
		MaxNumberOfMessages: aws.Int64(1),
		WaitTimeSeconds:     aws.Int64(2),
	})
	if err != nil {
		log.Fatalf("failed to receive message: %v", err)
	}

	if len(received.Messages) == 0 {
		fmt.Println("no messages received")
		return
	}

	msg := received.Messages[0]
	fmt.Printf("received message: %s - %s\n", *msg.MessageId, *msg.Body)

	if _, err := client.DeleteMessage(&sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	}); err != nil {
		log.Fatalf("failed to delete message: %v", err)
	}
	fmt.Println("deleted message successfully")
}
